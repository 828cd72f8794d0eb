package resource

// Handle is an integer name for a host wrapper held in a Table.
// Handle 0 is reserved and always invalid.
//
// The low 24 bits select a slot and the high 8 bits carry the slot's
// generation, so a handle kept after Remove or Sweep stops resolving even
// when its slot is reused. Generations wrap after 256 reuses of a slot.
type Handle uint32

const (
	indexBits = 24
	indexMask = 1<<indexBits - 1

	// MaxEntries is the number of slots a Table can hold.
	MaxEntries = indexMask
)

func makeHandle(slot int, gen uint8) Handle {
	return Handle(uint32(gen)<<indexBits | uint32(slot+1))
}

// slot returns the entry index named by h, or -1 for handle 0.
func (h Handle) slot() int { return int(h&indexMask) - 1 }

func (h Handle) generation() uint8 { return uint8(h >> indexBits) }

// Valid reports whether h can name an entry.
func (h Handle) Valid() bool { return h&indexMask != 0 }

// EventType identifies a table lifecycle change.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event represents a table lifecycle event.
type Event struct {
	Handle Handle
	Type   EventType
	// Collected is set on EventDropped when the wrapper was garbage
	// collected rather than removed.
	Collected bool
}

// Observer receives notifications about table lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}
