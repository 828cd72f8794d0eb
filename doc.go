// Package sourcepeer bridges native map sources and the host-language
// objects that front them.
//
// A native source can be owned by its host-side peer or by a style. The
// peer tracks which side owns the source, keeps the host wrapper alive
// while the style holds the source, and makes the wrapper observe a
// sentinel once the source is destroyed natively.
//
// # Packages
//
//	sourcepeer/
//	├── source/          Native map source with a back-reference slot
//	├── peer/            Ownership state machine and host handles
//	├── style/           Container that adopts, evicts and destroys sources
//	├── invoke/          Named accessor table resolved through host handles
//	├── resource/        Integer handles over weak host-handle references
//	├── wasmbind/        wazero host module exposing the accessor table
//	├── errors/          Structured error types
//	└── cmd/sourcepeer/  Scenario runner and interactive inspector
//
// # Quick Start
//
//	st := style.New()
//	defer st.Close()
//
//	src, _ := source.New("composite", source.KindVector)
//	h, _ := peer.NewHandle(src)
//
//	if err := h.AddTo(st); err != nil {
//		return err
//	}
//	id, _ := invoke.Default().Invoke(h, invoke.NativeGetID)
//
// # Ownership
//
// While the peer owns its source, dropping every reference to the host
// handle lets the garbage collector destroy the source. Once a style holds
// the source, the peer pins the handle so lookups keep returning it. If the
// style destroys the source, the handle is invalidated first and every
// later read fails with errors.ErrNoPeer.
package sourcepeer
