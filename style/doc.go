// Package style implements the native container that adopts map sources.
//
// A Style is a keyed collection of sources. Adopt takes ownership of a
// source under its identifier and Evict hands it back. Destroy and Close
// destroy sources in place; a source fronted by an attached peer is then
// torn down from the native side.
//
//	st := style.New(style.WithName("streets"))
//	defer st.Close()
//
//	h, _ := peer.NewHandle(src)
//	if err := h.AddTo(st); err != nil { ... }
//
// # Observers
//
// Observers receive EventAdopted, EventEvicted and EventDestroyed. Destroy
// events are delivered after the source and its peer were torn down.
// Adopted and evicted events fire while an attaching or detaching peer is
// locked, so those observers must not call into that peer.
//
// # Thread Safety
//
// Style is safe for concurrent use. Source destruction runs outside the
// style's lock, so peer teardown may call back into the style.
package style
