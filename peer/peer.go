package peer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/source-peer/errors"
	"github.com/wippyai/source-peer/source"
)

// NoAttribution is returned by Attribution when the source has none.
const NoAttribution = ""

// State is the ownership direction between a peer and its source.
type State uint8

const (
	StatePeerOwned      State = iota // the peer holds the source
	StateContainerOwned              // a container holds the source, the back-reference holds the peer
	StateReleased                    // torn down
)

func (s State) String() string {
	switch s {
	case StatePeerOwned:
		return "peer-owned"
	case StateContainerOwned:
		return "container-owned"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// ownership is the single ownership token. Exactly one variant is active,
// so "both" and "neither" cannot be expressed.
type ownership interface {
	state() State
}

type selfOwned struct {
	src *source.Source
}

type containerOwned struct {
	container Container
}

type released struct{}

func (selfOwned) state() State      { return StatePeerOwned }
func (containerOwned) state() State { return StateContainerOwned }
func (released) state() State       { return StateReleased }

// Peer bridges a native source and its host handle.
//
// Attach, detach and native teardown of one peer are issued sequentially by
// the goroutine that owns the container. Host finalization runs on the
// runtime's cleanup goroutine and may overlap calls made through a *Peer
// that outlived its handle, so the ownership token, the handle cell and the
// host reference are guarded by mu. Observers run after mu is released.
type Peer struct {
	resource *source.Source
	own      ownership
	cell     *cell
	observer Observer
	host     HostRef
	mu       sync.Mutex
	// exposed is set once the current handle was handed to host code. Only
	// an exposed handle owns a detached peer.
	exposed bool
}

// New creates a host-initiated peer that takes ownership of src.
// The host reference starts absent.
func New(src *source.Source, opts ...Option) (*Peer, error) {
	if src == nil {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "source cannot be nil")
	}
	if src.Adopted() {
		return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Source(src.ID()).
			Detail("source is held by a container, use Wrap").
			Build()
	}
	if src.Peer() != nil {
		return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Source(src.ID()).
			Detail("source already has a peer").
			Build()
	}

	p := &Peer{
		resource: src,
		own:      selfOwned{src: src},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewHandle creates a host-initiated peer for src and returns its host
// handle. The handle owns the peer: once it is unreachable the source is
// dropped.
func NewHandle(src *source.Source, opts ...Option) (*Handle, error) {
	p, err := New(src, opts...)
	if err != nil {
		return nil, err
	}
	return p.HostHandle(), nil
}

// Wrap creates a native-initiated peer for a source already held by c.
// The back-reference slot of src takes ownership of the new peer.
func Wrap(src *source.Source, c Container, opts ...Option) (*Peer, error) {
	if src == nil || c == nil {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "source and container are required")
	}
	if !src.Adopted() {
		return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Source(src.ID()).
			Detail("source is not held by a container, use New").
			Build()
	}
	if l, ok := c.(Locator); ok {
		if held, found := l.Lookup(src.ID()); !found || held != src {
			return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
				Source(src.ID()).
				Detail("source is held by a different container").
				Build()
		}
	}
	if src.Peer() != nil {
		return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Source(src.ID()).
			Detail("source already has a peer").
			Build()
	}

	p := &Peer{
		resource: src,
		own:      containerOwned{container: c},
	}
	for _, opt := range opts {
		opt(p)
	}
	src.SetPeer(p)
	return p, nil
}

// Resource returns the native source. It is valid for the peer's lifetime.
func (p *Peer) Resource() *source.Source { return p.resource }

// ID returns the source identifier.
func (p *Peer) ID() string { return p.resource.ID() }

// Attribution returns the source attribution, NoAttribution when unset.
func (p *Peer) Attribution() string {
	if a, ok := p.resource.Attribution(); ok {
		return a
	}
	return NoAttribution
}

// Kind returns the source kind.
func (p *Peer) Kind() source.Kind { return p.resource.Kind() }

// URL returns the source URL.
func (p *Peer) URL() string { return p.resource.URL() }

// State returns the current ownership direction.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.own.state()
}

// Attached reports whether a container holds the source.
func (p *Peer) Attached() bool { return p.State() == StateContainerOwned }

// HostRefState returns the durability of the host reference.
func (p *Peer) HostRefState() RefState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.host.State()
}

// HostHandle returns the host handle, creating it on first use. The new
// handle is referenced strongly while a container holds the source and
// weakly otherwise. Repeated calls return the same handle.
//
// The returned handle owns the peer once the source is back with the peer:
// dropping every reference to it lets the collector drop the source.
func (p *Peer) HostHandle() *Handle {
	var events []Event
	p.mu.Lock()
	defer p.unlock(&events)

	return p.hostHandle(true, &events)
}

// hostHandle implements HostHandle. Caller holds p.mu.
func (p *Peer) hostHandle(expose bool, events *[]Event) *Handle {
	if h := p.host.Get(); h != nil {
		if expose {
			p.exposed = true
		}
		return h
	}
	if _, ok := p.own.(released); ok {
		return &Handle{cell: &cell{}}
	}

	h := newHandle(p)
	p.cell = h.cell
	p.exposed = expose
	if _, ok := p.own.(containerOwned); ok {
		p.host.SetStrong(h)
	} else {
		p.host.SetWeak(h)
	}
	*events = append(*events, p.event(EventHandleCreated))
	return h
}

// Attach moves ownership of the source into c.
func (p *Peer) Attach(c Container) error {
	var events []Event
	p.mu.Lock()
	defer p.unlock(&events)

	id := p.resource.ID()

	var own selfOwned
	switch o := p.own.(type) {
	case released:
		return errors.Released(errors.PhaseAttach, id)
	case containerOwned:
		return errors.AlreadyAttached(id)
	case selfOwned:
		own = o
	}
	if c == nil {
		return errors.InvalidInput(errors.PhaseAttach, "container cannot be nil")
	}

	if err := c.Adopt(id, own.src); err != nil {
		return err
	}

	own.src.SetPeer(p)
	p.own = containerOwned{container: c}
	p.host.SetStrong(p.hostHandle(false, &events))

	Logger().Debug("source attached", zap.String("id", id))
	events = append(events, p.event(EventAttached))
	return nil
}

// Detach takes ownership of the source back from c.
// Detaching a peer that c does not hold is a caller bug: it returns
// errors.ErrNotAttached, or panics when built with the peerdebug tag.
//
// If host code holds the handle, the reference to it becomes weak and the
// handle owns the peer again. Otherwise the internal handle is retired and
// the host reference returns to absent.
func (p *Peer) Detach(c Container) error {
	var events []Event
	p.mu.Lock()
	defer p.unlock(&events)

	id := p.resource.ID()

	own, ok := p.own.(containerOwned)
	if !ok || own.container != c {
		detail := "peer owns its source"
		switch {
		case p.own.state() == StateReleased:
			detail = "peer already torn down"
		case ok:
			detail = "source is held by a different container"
		}
		err := errors.NotAttached(id, detail)
		if strictPreconditions {
			fatal(err)
		}
		return err
	}

	src, err := c.Evict(id)
	if err != nil {
		return err
	}
	if src != p.resource {
		fatal(errors.Invariant(errors.PhaseDetach, id, "container evicted a different source instance"))
	}

	src.ClearPeer()
	p.own = selfOwned{src: src}
	if p.exposed {
		p.host.Weaken()
	} else {
		if hc := p.cell; hc != nil {
			p.cell = nil
			hc.peer.CompareAndSwap(p, nil)
		}
		p.host.Reset()
	}

	Logger().Debug("source detached", zap.String("id", id), zap.Bool("host_owned", p.exposed))
	events = append(events, p.event(EventDetached))
	return nil
}

// Release is the native-triggered teardown, called when the container
// destroys the source. The sentinel is written into the host handle before
// the host reference is dropped, so a host cleanup running afterwards sees
// the sentinel and leaves the peer alone. Later calls do nothing.
func (p *Peer) Release() {
	var events []Event
	p.mu.Lock()
	defer p.unlock(&events)

	id := p.resource.ID()

	switch p.own.(type) {
	case released:
		return
	case selfOwned:
		fatal(errors.Invariant(errors.PhaseTeardown, id, "native release of a peer that owns its source"))
	}
	p.own = released{}

	// phase 1: invalidate observers
	if c := p.cell; c != nil {
		p.cell = nil
		if !c.peer.CompareAndSwap(p, nil) && c.peer.Load() != nil {
			fatal(errors.Invariant(errors.PhaseTeardown, id, "host handle bound to another peer"))
		}
	}
	events = append(events, p.event(EventInvalidated))

	// phase 2: release
	p.host.Reset()
	p.exposed = false
	events = append(events, p.event(EventHostReleased))

	Logger().Debug("source released by container", zap.String("id", id))
}

// finalizeHost is the host-triggered teardown for the wrapper that owned c.
// It runs on the runtime's cleanup goroutine.
func (p *Peer) finalizeHost(c *cell) {
	var events []Event
	p.mu.Lock()
	defer p.unlock(&events)

	id := p.resource.ID()

	if _, ok := p.own.(released); ok {
		return
	}
	if p.cell != c {
		Logger().Warn("ignoring cleanup of a superseded host handle", zap.String("id", id))
		return
	}

	switch own := p.own.(type) {
	case selfOwned:
		p.cell = nil
		p.host.Reset()
		if !p.exposed {
			// the handle never reached host code and does not own the peer
			return
		}
		p.exposed = false
		p.own = released{}
		Logger().Debug("host handle collected, dropping source", zap.String("id", id))
		own.src.Drop()
		events = append(events, p.event(EventHostFinalized))
	case containerOwned:
		fatal(errors.Invariant(errors.PhaseTeardown, id, "host handle collected while a container holds the source"))
	}
}

// event snapshots the peer for an observer. Caller holds p.mu.
func (p *Peer) event(t EventType) Event {
	return Event{
		SourceID: p.resource.ID(),
		Type:     t,
		State:    p.own.state(),
		Ref:      p.host.State(),
	}
}

// unlock releases p.mu and then delivers the collected events.
func (p *Peer) unlock(events *[]Event) {
	p.mu.Unlock()
	if p.observer == nil {
		return
	}
	for _, e := range *events {
		p.observer(e)
	}
}

func fatal(err *errors.Error) {
	Logger().Error("ownership invariant violated", zap.Error(err))
	panic(err)
}
