// Package errors provides structured error types for the source peer bridge.
//
// Errors are categorized by Phase (which bridge operation failed) and Kind
// (error category). The Error type carries the source identifier involved,
// a detail message and an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAttach, errors.KindAlreadyAttached).
//		Source("composite").
//		Detail("cannot add source twice").
//		Build()
//
// Or use convenience constructors for the common cases:
//
//	err := errors.AlreadyAttached("composite")
//	err := errors.NoPeer(errors.PhaseHost)
//
// Package-level sentinels have no Phase and match any error of their Kind:
//
//	if errors.Is(err, bridgeerrors.ErrNoPeer) { ... }
//
// Invariant errors are never returned; the bridge panics with them because
// a broken ownership invariant cannot be recovered from.
package errors
