package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which bridge operation produced the error
type Phase string

const (
	PhaseConstruct Phase = "construct" // peer and source construction
	PhaseAttach    Phase = "attach"    // ownership moves into a container
	PhaseDetach    Phase = "detach"    // ownership moves back to the peer
	PhaseTeardown  Phase = "teardown"  // host or native destruction
	PhaseStyle     Phase = "style"     // container bookkeeping
	PhaseHost      Phase = "host"      // host handle access
	PhaseInvoke    Phase = "invoke"    // invocation registry
	PhaseBind      Phase = "bind"      // wasm host module binding
	PhaseTable     Phase = "table"     // integer handle table
)

// Kind categorizes the error
type Kind string

const (
	KindAlreadyAttached     Kind = "already_attached"
	KindNotAttached         Kind = "not_attached"
	KindIdentifierCollision Kind = "identifier_collision"
	KindNotFound            Kind = "not_found"
	KindNoPeer              Kind = "no_peer"
	KindReleased            Kind = "released"
	KindClosed              Kind = "closed"
	KindInvalidInput        Kind = "invalid_input"
	KindRegistration        Kind = "registration"
	KindInvariant           Kind = "invariant"
)

// Sentinels for errors.Is. They carry no Phase, so they match any error of
// the same Kind.
var (
	ErrAlreadyAttached     = &Error{Kind: KindAlreadyAttached}
	ErrNotAttached         = &Error{Kind: KindNotAttached}
	ErrIdentifierCollision = &Error{Kind: KindIdentifierCollision}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrNoPeer              = &Error{Kind: KindNoPeer}
	ErrReleased            = &Error{Kind: KindReleased}
	ErrClosed              = &Error{Kind: KindClosed}
	ErrInvariant           = &Error{Kind: KindInvariant}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	SourceID string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.SourceID != "" {
		b.WriteString(" source ")
		b.WriteString(fmt.Sprintf("%q", e.SourceID))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Source sets the identifier of the source involved
func (b *Builder) Source(id string) *Builder {
	b.err.SourceID = id
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the bridge taxonomy

// AlreadyAttached reports an attach on a peer that does not own its source.
func AlreadyAttached(id string) *Error {
	return &Error{
		Phase:    PhaseAttach,
		Kind:     KindAlreadyAttached,
		SourceID: id,
		Detail:   "cannot add source twice",
	}
}

// NotAttached reports a detach on a peer that is not held by the container.
func NotAttached(id, detail string) *Error {
	return &Error{
		Phase:    PhaseDetach,
		Kind:     KindNotAttached,
		SourceID: id,
		Detail:   detail,
	}
}

// IdentifierCollision reports that a container already holds the identifier.
func IdentifierCollision(id string) *Error {
	return &Error{
		Phase:    PhaseStyle,
		Kind:     KindIdentifierCollision,
		SourceID: id,
		Detail:   "identifier already present",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NoPeer reports a read through an invalidated host handle.
func NoPeer(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoPeer,
		Detail: "host handle has no live native peer",
	}
}

// Released reports an operation on a peer that was already torn down.
func Released(phase Phase, id string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindReleased,
		SourceID: id,
		Detail:   "peer already torn down",
	}
}

// Closed reports an operation on a closed container or table.
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", what),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", name),
		Cause:  cause,
	}
}

// Invariant describes a broken ownership invariant. Callers panic with it.
func Invariant(phase Phase, id, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvariant,
		SourceID: id,
		Detail:   detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
