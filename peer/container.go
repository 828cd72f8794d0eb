package peer

import (
	"github.com/wippyai/source-peer/errors"
	"github.com/wippyai/source-peer/source"
)

// Container is a native collection that can take ownership of a source and
// later give it back. Implementations must be comparable (pointer types).
// Adopt and Evict run while the peer is locked and must not call back into it.
type Container interface {
	// Adopt takes ownership of src under id. It fails if id is present.
	Adopt(id string, src *source.Source) error
	// Evict removes id and returns ownership of the source. It fails if id
	// is absent.
	Evict(id string) (*source.Source, error)
}

// Locator is a Container that can also find sources by identifier.
type Locator interface {
	Container
	Lookup(id string) (*source.Source, bool)
}

// Lookup returns the host handle for the source stored under id, creating
// the native-initiated peer on first access.
func Lookup(l Locator, id string, opts ...Option) (*Handle, error) {
	src, ok := l.Lookup(id)
	if !ok {
		return nil, errors.NotFound(errors.PhaseHost, "source", id)
	}

	if p, ok := src.Peer().(*Peer); ok {
		return p.HostHandle(), nil
	}

	p, err := Wrap(src, l, opts...)
	if err != nil {
		return nil, err
	}
	return p.HostHandle(), nil
}
