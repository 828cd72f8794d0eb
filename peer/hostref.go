package peer

import "weak"

// RefState is the durability of a peer's reference to its host handle.
type RefState uint8

const (
	RefAbsent RefState = iota // no reference
	RefWeak                   // lookup only, does not keep the handle alive
	RefStrong                 // keeps the handle alive
)

func (s RefState) String() string {
	switch s {
	case RefAbsent:
		return "absent"
	case RefWeak:
		return "weak"
	case RefStrong:
		return "strong"
	}
	return "unknown"
}

// HostRef is a peer's reference to the host-side wrapper.
// The zero value is absent.
type HostRef struct {
	strong *Handle
	weak   weak.Pointer[Handle]
	state  RefState
}

// State returns the reference durability.
func (r *HostRef) State() RefState { return r.state }

// Get resolves the handle. It returns nil when absent or when a weakly
// referenced handle was already collected.
func (r *HostRef) Get() *Handle {
	switch r.state {
	case RefStrong:
		return r.strong
	case RefWeak:
		return r.weak.Value()
	}
	return nil
}

// SetWeak references h without keeping it alive.
func (r *HostRef) SetWeak(h *Handle) {
	if h == nil {
		r.Reset()
		return
	}
	r.strong = nil
	r.weak = weak.Make(h)
	r.state = RefWeak
}

// SetStrong references h and keeps it alive.
func (r *HostRef) SetStrong(h *Handle) {
	if h == nil {
		r.Reset()
		return
	}
	r.strong = h
	r.weak = weak.Make(h)
	r.state = RefStrong
}

// Weaken downgrades a strong reference. Other states are unchanged.
func (r *HostRef) Weaken() {
	if r.state != RefStrong {
		return
	}
	r.strong = nil
	r.state = RefWeak
}

// Reset drops the reference entirely.
func (r *HostRef) Reset() {
	*r = HostRef{}
}
