// Package resource provides integer handles for host wrappers.
//
// Foreign code such as a wasm guest cannot hold Go pointers, so it names
// host wrappers by a small integer. The Table maps those integers to weak
// references: holding a handle does not keep the wrapper alive, and once the
// garbage collector reclaims the wrapper the handle stops resolving.
//
//	table := resource.NewTable[peer.Handle]()
//	h, _ := table.Insert(hostHandle)
//
//	if v, ok := table.Get(h); ok {
//		// v is the live wrapper
//	}
//
// # Handle Reuse
//
// Handle 0 is never issued. Removed and swept slots go on a free list and
// are handed out again by later inserts under a new generation, so a stale
// handle fails to resolve instead of naming the slot's next occupant.
//
// # Thread Safety
//
// Table is safe for concurrent use.
package resource
