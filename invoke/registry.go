package invoke

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/source-peer/errors"
	"github.com/wippyai/source-peer/peer"
)

// Method names exposed by SourceMethods.
const (
	NativeGetID          = "nativeGetId"
	NativeGetAttribution = "nativeGetAttribution"
	NativeGetKind        = "nativeGetKind"
	NativeGetURL         = "nativeGetUrl"
	NativeIsAttached     = "nativeIsAttached"
)

// Method is one named operation bound to a peer accessor.
type Method struct {
	Result wit.Type
	Call   func(*peer.Peer) (any, error)
	Name   string
}

// Registry maps operation names to methods.
type Registry struct {
	byName map[string]*Method
	order  []*Method
	mu     sync.RWMutex
	sealed bool
}

// New creates an empty, unsealed registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*Method)}
}

// Register adds m. Names must be unique and non-empty, and the registry
// must not be sealed.
func (r *Registry) Register(m Method) error {
	if m.Name == "" {
		return errors.Registration(errors.PhaseInvoke, "<empty>", fmt.Errorf("method name is required"))
	}
	if m.Call == nil {
		return errors.Registration(errors.PhaseInvoke, m.Name, fmt.Errorf("method has no call"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Registration(errors.PhaseInvoke, m.Name, fmt.Errorf("registry is sealed"))
	}
	if _, exists := r.byName[m.Name]; exists {
		return errors.Registration(errors.PhaseInvoke, m.Name, fmt.Errorf("duplicate method"))
	}

	entry := m
	r.byName[m.Name] = &entry
	r.order = append(r.order, &entry)
	return nil
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup returns the method registered under name.
func (r *Registry) Lookup(name string) (Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	if !ok {
		return Method{}, false
	}
	return *m, true
}

// Methods returns all methods in registration order.
func (r *Registry) Methods() []Method {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Method, len(r.order))
	for i, m := range r.order {
		out[i] = *m
	}
	return out
}

// Invoke resolves the peer behind h and calls the named method on it.
func (r *Registry) Invoke(h *peer.Handle, name string) (any, error) {
	m, ok := r.Lookup(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseInvoke, "method", name)
	}

	p, err := h.Peer()
	if err != nil {
		return nil, err
	}
	return m.Call(p)
}

// SourceMethods returns the fixed accessor table for map sources.
func SourceMethods() []Method {
	return []Method{
		{
			Name:   NativeGetID,
			Result: wit.String{},
			Call:   func(p *peer.Peer) (any, error) { return p.ID(), nil },
		},
		{
			Name:   NativeGetAttribution,
			Result: wit.String{},
			Call:   func(p *peer.Peer) (any, error) { return p.Attribution(), nil },
		},
		{
			Name:   NativeGetKind,
			Result: wit.String{},
			Call:   func(p *peer.Peer) (any, error) { return string(p.Kind()), nil },
		},
		{
			Name:   NativeGetURL,
			Result: wit.String{},
			Call:   func(p *peer.Peer) (any, error) { return p.URL(), nil },
		},
		{
			Name:   NativeIsAttached,
			Result: wit.Bool{},
			Call:   func(p *peer.Peer) (any, error) { return p.Attached(), nil },
		},
	}
}

type defaultTable struct {
	reg  *Registry
	once sync.Once
}

var current atomic.Pointer[defaultTable]

// Default returns the process-wide registry, building and sealing it on
// first use.
func Default() *Registry {
	t := current.Load()
	for t == nil {
		current.CompareAndSwap(nil, &defaultTable{})
		t = current.Load()
	}

	t.once.Do(func() {
		reg := New()
		for _, m := range SourceMethods() {
			if err := reg.Register(m); err != nil {
				panic(err)
			}
		}
		reg.Seal()
		t.reg = reg
	})
	return t.reg
}

// Teardown drops the process-wide registry. The next Default rebuilds it.
func Teardown() {
	current.Store(nil)
}
