package resource

import (
	"sync"
	"weak"

	"github.com/wippyai/source-peer/errors"
)

type entry[T any] struct {
	ref   weak.Pointer[T]
	gen   uint8
	valid bool
}

// Table maps integer handles to weakly held values. An entry never keeps
// its value alive; Get fails once the value has been collected.
type Table[T any] struct {
	entries   []entry[T]
	freeList  []int
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		entries:  make([]entry[T], 0, 64),
		freeList: make([]int, 0, 16),
	}
}

// Insert stores a weak reference to v and returns its handle.
func (t *Table[T]) Insert(v *T) (Handle, error) {
	if v == nil {
		return 0, errors.InvalidInput(errors.PhaseTable, "value cannot be nil")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, errors.Closed(errors.PhaseTable, "handle table")
	}

	var slot int
	if n := len(t.freeList); n > 0 {
		slot = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		if len(t.entries) >= MaxEntries {
			t.mu.Unlock()
			return 0, errors.New(errors.PhaseTable, errors.KindInvalidInput).
				Value(MaxEntries).
				Detail("handle table is full").
				Build()
		}
		t.entries = append(t.entries, entry[T]{})
		slot = len(t.entries) - 1
	}

	e := &t.entries[slot]
	e.ref = weak.Make(v)
	e.valid = true
	h := makeHandle(slot, e.gen)
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h})
	return h, nil
}

// Get returns the value named by h, or false if h is unknown, removed or
// its value was collected.
func (t *Table[T]) Get(h Handle) (*T, bool) {
	if h == 0 {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.lookup(h)
	if !ok {
		return nil, false
	}
	v := e.ref.Value()
	return v, v != nil
}

// Remove frees h for reuse. It reports whether h named an entry.
func (t *Table[T]) Remove(h Handle) bool {
	if h == 0 {
		return false
	}

	t.mu.Lock()
	e, ok := t.lookup(h)
	if !ok {
		t.mu.Unlock()
		return false
	}
	t.free(h.slot(), e)
	t.mu.Unlock()

	t.notify(Event{Type: EventDropped, Handle: h})
	return true
}

// Sweep frees every entry whose value was collected and returns how many
// were freed.
func (t *Table[T]) Sweep() int {
	t.mu.Lock()
	var swept []Handle
	for i := range t.entries {
		e := &t.entries[i]
		if e.valid && e.ref.Value() == nil {
			swept = append(swept, makeHandle(i, e.gen))
			t.free(i, e)
		}
	}
	t.mu.Unlock()

	for _, h := range swept {
		t.notify(Event{Type: EventDropped, Handle: h, Collected: true})
	}
	return len(swept)
}

// lookup returns the live entry named by h. Caller holds t.mu.
func (t *Table[T]) lookup(h Handle) (*entry[T], bool) {
	slot := h.slot()
	if slot < 0 || slot >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[slot]
	if !e.valid || e.gen != h.generation() {
		return nil, false
	}
	return e, true
}

// free retires e and bumps its generation. Caller holds t.mu.
func (t *Table[T]) free(slot int, e *entry[T]) {
	e.ref = weak.Pointer[T]{}
	e.valid = false
	e.gen++
	t.freeList = append(t.freeList, slot)
}

// Len returns the number of entries whose value is still alive.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for i := range t.entries {
		if t.entries[i].valid && t.entries[i].ref.Value() != nil {
			n++
		}
	}
	return n
}

// Subscribe adds an observer for table events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

// Close forgets every entry. Values are not touched; they were never owned
// by the table. Later inserts fail with errors.ErrClosed.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.entries = nil
	t.freeList = nil
	return nil
}
