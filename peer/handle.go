package peer

import (
	"runtime"
	"sync/atomic"

	"github.com/wippyai/source-peer/errors"
)

// cell is the handle field of a host wrapper: the live peer, or nil as the
// "no native peer" sentinel. It is a separate allocation so the wrapper's
// cleanup can read it without keeping the wrapper reachable.
type cell struct {
	peer atomic.Pointer[Peer]
}

// Handle is the host-side wrapper of a peer. Host code holds Handles; once a
// Handle becomes unreachable the garbage collector triggers host teardown.
//
// Every method checks the sentinel first, so a Handle outliving its peer
// reports errors.ErrNoPeer instead of touching freed state.
type Handle struct {
	cell *cell
}

// newHandle allocates a wrapper bound to p and registers its cleanup.
func newHandle(p *Peer) *Handle {
	c := &cell{}
	c.peer.Store(p)
	h := &Handle{cell: c}
	runtime.AddCleanup(h, finalizeCell, c)
	return h
}

// finalizeCell runs after the wrapper owning c was collected.
func finalizeCell(c *cell) {
	p := c.peer.Swap(nil)
	if p == nil {
		// native teardown already wrote the sentinel
		return
	}
	p.finalizeHost(c)
}

// Peer resolves the native peer.
func (h *Handle) Peer() (*Peer, error) {
	if h == nil || h.cell == nil {
		return nil, errors.NoPeer(errors.PhaseHost)
	}
	p := h.cell.peer.Load()
	if p == nil {
		return nil, errors.NoPeer(errors.PhaseHost)
	}
	return p, nil
}

// Valid reports whether the handle still refers to a live peer.
func (h *Handle) Valid() bool {
	_, err := h.Peer()
	return err == nil
}

// ID returns the source identifier.
func (h *Handle) ID() (string, error) {
	p, err := h.Peer()
	if err != nil {
		return "", err
	}
	return p.ID(), nil
}

// Attribution returns the source attribution, NoAttribution when unset.
func (h *Handle) Attribution() (string, error) {
	p, err := h.Peer()
	if err != nil {
		return "", err
	}
	return p.Attribution(), nil
}

// AddTo hands the source over to c.
func (h *Handle) AddTo(c Container) error {
	p, err := h.Peer()
	if err != nil {
		return err
	}
	err = p.Attach(c)
	runtime.KeepAlive(h)
	return err
}

// RemoveFrom takes the source back from c.
func (h *Handle) RemoveFrom(c Container) error {
	p, err := h.Peer()
	if err != nil {
		return err
	}
	err = p.Detach(c)
	runtime.KeepAlive(h)
	return err
}
