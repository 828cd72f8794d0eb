package source

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/source-peer/errors"
)

// Kind is the source type as named in a map style document.
type Kind string

const (
	KindVector    Kind = "vector"
	KindRaster    Kind = "raster"
	KindRasterDEM Kind = "raster-dem"
	KindGeoJSON   Kind = "geojson"
	KindImage     Kind = "image"
	KindVideo     Kind = "video"
	KindCustom    Kind = "custom"
)

// Valid reports whether k is a known source kind.
func (k Kind) Valid() bool {
	switch k {
	case KindVector, KindRaster, KindRasterDEM, KindGeoJSON, KindImage, KindVideo, KindCustom:
		return true
	}
	return false
}

// Releaser is implemented by back-reference values that must be torn down
// before their source is destroyed.
type Releaser interface {
	Release()
}

// Source is a native map data source.
// Identity fields are immutable. The back-reference slot and the lifecycle
// flags may be touched by host teardown on the runtime's cleanup goroutine.
type Source struct {
	peer        any
	attribution *string
	id          string
	kind        Kind
	url         string
	mu          sync.Mutex
	adopted     atomic.Bool
	dropped     atomic.Bool
}

// Option configures a Source at construction.
type Option func(*Source)

// WithAttribution sets the attribution string.
func WithAttribution(attribution string) Option {
	return func(s *Source) {
		s.attribution = &attribution
	}
}

// WithURL sets the tile or data URL.
func WithURL(url string) Option {
	return func(s *Source) {
		s.url = url
	}
}

// New creates a source. The identifier must be non-empty.
func New(id string, kind Kind, opts ...Option) (*Source, error) {
	if id == "" {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "source identifier cannot be empty")
	}
	if !kind.Valid() {
		return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Source(id).
			Value(kind).
			Detail("unknown source kind %q", kind).
			Build()
	}

	s := &Source{id: id, kind: kind}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the stable identifier.
func (s *Source) ID() string { return s.id }

// Kind returns the source kind.
func (s *Source) Kind() Kind { return s.kind }

// URL returns the tile or data URL, empty when unset.
func (s *Source) URL() string { return s.url }

// Attribution returns the attribution and whether one is set.
func (s *Source) Attribution() (string, bool) {
	if s.attribution == nil {
		return "", false
	}
	return *s.attribution, true
}

// Peer returns the back-reference, nil when empty.
func (s *Source) Peer() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// SetPeer stores a back-reference.
func (s *Source) SetPeer(p any) {
	s.mu.Lock()
	s.peer = p
	s.mu.Unlock()
}

// ClearPeer empties the back-reference slot and returns the previous value.
func (s *Source) ClearPeer() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.peer
	s.peer = nil
	return p
}

// Adopted reports whether a container currently holds the source.
func (s *Source) Adopted() bool { return s.adopted.Load() }

// MarkAdopted records container ownership. Only containers call it.
func (s *Source) MarkAdopted(adopted bool) { s.adopted.Store(adopted) }

// Dropped reports whether Drop was called.
func (s *Source) Dropped() bool { return s.dropped.Load() }

// Drop destroys the source. The back-reference is released first so the
// peer can invalidate its host handle before anything else is torn down.
// Calling Drop more than once has no effect.
func (s *Source) Drop() {
	if !s.dropped.CompareAndSwap(false, true) {
		return
	}

	if r, ok := s.ClearPeer().(Releaser); ok {
		r.Release()
	}
	s.adopted.Store(false)
}
