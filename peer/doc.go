// Package peer implements the ownership bridge between host handles and
// native map sources.
//
// # Ownership
//
// A Peer fronts exactly one source.Source. Ownership flips between two
// directions and never doubles:
//
//	peer-owned:       Handle ──> Peer ──> Source
//	container-owned:  Container ──> Source ──(back-reference)──> Peer ──(strong)──> Handle
//
// Attach moves the source into a Container, stores the Peer in the source's
// back-reference slot and makes the Peer's HostRef strong, so the host
// handle stays alive for as long as the container needs it. Detach is the
// inverse: a handle that host code obtained through NewHandle, HostHandle
// or Lookup is referenced weakly again and owns the peer, while a handle
// that only Attach created is retired and the reference returns to absent.
// A peer held only through *Peer is therefore never torn down by the
// collector.
//
// # Host references
//
// HostRef has three explicit states: absent, weak (lookup only) and strong
// (keep-alive). Weak references use the weak package, so a peer-owned Handle
// remains collectable.
//
// # Teardown
//
// Host-triggered: when a Handle becomes unreachable the runtime runs its
// cleanup. A peer that owns its source through that handle releases and
// drops it.
//
// Native-triggered: the container destroys the source, which calls
// Peer.Release. Release first writes the "no native peer" sentinel into the
// Handle and only then drops the host reference. A cleanup running later
// observes the sentinel and returns without touching the peer.
//
// # Example
//
//	src, _ := source.New("composite", source.KindVector)
//	h, _ := peer.NewHandle(src)
//	if err := h.AddTo(st); err != nil { ... }
//	id, err := h.ID()
//	if err := h.RemoveFrom(st); err != nil { ... }
//
// # Thread Safety
//
// Attach, Detach and Release of one peer must be issued sequentially.
// Host cleanups run on the runtime's cleanup goroutine, so a peer guards
// its ownership state with a mutex and accessors may be called while a
// cleanup is in flight. Handle reads are safe from any goroutine; they
// observe either the live peer or the sentinel.
package peer
