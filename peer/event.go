package peer

// EventType identifies a peer lifecycle transition.
type EventType uint8

const (
	EventHandleCreated EventType = iota
	EventAttached
	EventDetached
	EventInvalidated   // sentinel written into the host handle
	EventHostReleased  // host reference dropped after invalidation
	EventHostFinalized // host handle collected while the peer owned its source
)

func (t EventType) String() string {
	switch t {
	case EventHandleCreated:
		return "handle-created"
	case EventAttached:
		return "attached"
	case EventDetached:
		return "detached"
	case EventInvalidated:
		return "invalidated"
	case EventHostReleased:
		return "host-released"
	case EventHostFinalized:
		return "host-finalized"
	}
	return "unknown"
}

// Event describes a lifecycle transition of one peer.
type Event struct {
	SourceID string
	Type     EventType
	State    State
	Ref      RefState
}

// Observer receives peer events. Host finalization events are delivered on
// the runtime's cleanup goroutine.
type Observer func(Event)

// Option configures a peer at construction.
type Option func(*Peer)

// WithObserver registers an observer for lifecycle events.
func WithObserver(o Observer) Option {
	return func(p *Peer) {
		p.observer = o
	}
}
