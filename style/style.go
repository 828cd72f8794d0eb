package style

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/source-peer/errors"
	"github.com/wippyai/source-peer/source"
)

// EventType identifies a style collection change.
type EventType uint8

const (
	EventAdopted EventType = iota
	EventEvicted
	EventDestroyed
)

func (t EventType) String() string {
	switch t {
	case EventAdopted:
		return "adopted"
	case EventEvicted:
		return "evicted"
	case EventDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Event describes a change to the style's sources.
type Event struct {
	Source *source.Source
	ID     string
	Type   EventType
}

// Observer receives notifications about style changes.
type Observer interface {
	OnStyleEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnStyleEvent calls f(e).
func (f ObserverFunc) OnStyleEvent(e Event) { f(e) }

// Option configures a Style.
type Option func(*Style)

// WithName sets the style name used in logs.
func WithName(name string) Option {
	return func(s *Style) {
		s.name = name
	}
}

// WithObserver subscribes o at construction.
func WithObserver(o Observer) Option {
	return func(s *Style) {
		s.observers = append(s.observers, o)
	}
}

// Style owns a keyed collection of sources.
type Style struct {
	sources   map[string]*source.Source
	name      string
	order     []string
	observers []Observer
	obsMu     sync.RWMutex
	mu        sync.Mutex
	closed    bool
}

// New creates an empty style.
func New(opts ...Option) *Style {
	s := &Style{
		sources: make(map[string]*source.Source),
		name:    "style",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the style name.
func (s *Style) Name() string { return s.name }

// Adopt takes ownership of src under id.
func (s *Style) Adopt(id string, src *source.Source) error {
	if src == nil {
		return errors.InvalidInput(errors.PhaseStyle, "source cannot be nil")
	}
	if id != src.ID() {
		return errors.New(errors.PhaseStyle, errors.KindInvalidInput).
			Source(src.ID()).
			Detail("adopted under mismatched identifier %q", id).
			Build()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.Closed(errors.PhaseStyle, s.name)
	}
	if src.Dropped() {
		s.mu.Unlock()
		return errors.Released(errors.PhaseStyle, id)
	}
	if src.Adopted() {
		s.mu.Unlock()
		return errors.New(errors.PhaseStyle, errors.KindAlreadyAttached).
			Source(id).
			Detail("source is held by another container").
			Build()
	}
	if _, ok := s.sources[id]; ok {
		s.mu.Unlock()
		return errors.IdentifierCollision(id)
	}

	s.sources[id] = src
	s.order = append(s.order, id)
	src.MarkAdopted(true)
	s.mu.Unlock()

	Logger().Debug("source adopted", zap.String("style", s.name), zap.String("id", id))
	s.notify(Event{Type: EventAdopted, ID: id, Source: src})
	return nil
}

// Evict removes id and returns the source to the caller.
func (s *Style) Evict(id string) (*source.Source, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.Closed(errors.PhaseStyle, s.name)
	}
	src, ok := s.take(id)
	s.mu.Unlock()

	if !ok {
		return nil, errors.NotFound(errors.PhaseStyle, "source", id)
	}

	src.MarkAdopted(false)
	Logger().Debug("source evicted", zap.String("style", s.name), zap.String("id", id))
	s.notify(Event{Type: EventEvicted, ID: id, Source: src})
	return src, nil
}

// Lookup returns the source stored under id.
func (s *Style) Lookup(id string) (*source.Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	return src, ok
}

// IDs returns the identifiers in adoption order.
func (s *Style) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Len returns the number of sources held.
func (s *Style) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// Destroy removes id and destroys the source in place.
func (s *Style) Destroy(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.Closed(errors.PhaseStyle, s.name)
	}
	src, ok := s.take(id)
	s.mu.Unlock()

	if !ok {
		return errors.NotFound(errors.PhaseStyle, "source", id)
	}

	s.destroy(id, src)
	return nil
}

// Close destroys every source in adoption order. Subsequent operations
// fail with errors.ErrClosed. Close is idempotent.
func (s *Style) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	order := s.order
	sources := s.sources
	s.order = nil
	s.sources = make(map[string]*source.Source)
	s.mu.Unlock()

	for _, id := range order {
		s.destroy(id, sources[id])
	}
	Logger().Debug("style closed", zap.String("style", s.name), zap.Int("destroyed", len(order)))
	return nil
}

// Subscribe adds an observer for style events.
func (s *Style) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// Unsubscribe removes an observer.
func (s *Style) Unsubscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for i, obs := range s.observers {
		if obs == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// take removes id from the collection. Caller holds s.mu.
func (s *Style) take(id string) (*source.Source, bool) {
	src, ok := s.sources[id]
	if !ok {
		return nil, false
	}
	delete(s.sources, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return src, true
}

func (s *Style) destroy(id string, src *source.Source) {
	src.Drop()
	Logger().Debug("source destroyed", zap.String("style", s.name), zap.String("id", id))
	s.notify(Event{Type: EventDestroyed, ID: id, Source: src})
}

func (s *Style) notify(e Event) {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	for _, o := range s.observers {
		o.OnStyleEvent(e)
	}
}
