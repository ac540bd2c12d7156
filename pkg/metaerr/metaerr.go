// Package metaerr defines the error taxonomy used across the cluster
// metadata core: callers distinguish failure kinds with errors.Is/As rather
// than matching message strings, while the message text itself remains
// stable (it is observed by clients that pattern-match on it).
package metaerr

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind identifies one of the error categories from the error handling design.
type Kind int

const (
	// InvalidInput means an operation was called with arguments that
	// violate a declared precondition.
	InvalidInput Kind = iota
	// InvalidState means a global invariant was violated at build time.
	InvalidState
	// NotFound means an index, data stream, or alias named in an
	// operation does not exist.
	NotFound
	// Conflict means a create-like operation targets a name that already
	// exists in some abstraction.
	Conflict
	// CorruptMetadata means deserialization observed a structural
	// inconsistency.
	CorruptMetadata
	// VersionSkew means a writer emitted a named variant the reader does
	// not recognize. Not fatal; logged as a warning by the caller.
	VersionSkew
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case InvalidState:
		return "invalid_state"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case CorruptMetadata:
		return "corrupt_metadata"
	case VersionSkew:
		return "version_skew"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying a Kind and the name of the offending
// entity, so messages stay stable while callers can still branch on Kind.
type Error struct {
	Kind   Kind
	Entity string
	msg    string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is supports errors.Is(err, &metaerr.Error{Kind: k}) by kind comparison;
// see IsKind for the common case.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// New constructs an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind wrapping a cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// NotFoundf is a convenience constructor for the common NotFound shape.
func NotFoundf(entity, format string, args ...interface{}) *Error {
	return &Error{Kind: NotFound, Entity: entity, msg: fmt.Sprintf(format, args...)}
}

// Conflictf is a convenience constructor for the common Conflict shape.
func Conflictf(entity, format string, args ...interface{}) *Error {
	return &Error{Kind: Conflict, Entity: entity, msg: fmt.Sprintf(format, args...)}
}

// InvalidInputf is a convenience constructor for the common InvalidInput shape.
func InvalidInputf(format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidInput, msg: fmt.Sprintf(format, args...)}
}

// InvalidStatef is a convenience constructor for a standalone InvalidState
// error (not accumulated via Accumulator).
func InvalidStatef(format string, args ...interface{}) *Error {
	return &Error{Kind: InvalidState, msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err (or something it wraps) is a metaerr.Error of
// the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if me, ok := err.(*Error); ok {
			e = me
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}

// Accumulator collects multiple failures detected during a single build pass
// (e.g. Metadata.Builder.Build's name-collision scan) and reports them as one
// InvalidState error enumerating every conflict, per the "collect many,
// report one" contract.
type Accumulator struct {
	merr *multierror.Error
}

// Add records a failure. Safe to call with nil, which is a no-op.
func (a *Accumulator) Add(err error) {
	if err == nil {
		return
	}
	a.merr = multierror.Append(a.merr, err)
}

// Addf records a formatted failure.
func (a *Accumulator) Addf(format string, args ...interface{}) {
	a.Add(fmt.Errorf(format, args...))
}

// HasErrors reports whether any failure has been recorded.
func (a *Accumulator) HasErrors() bool {
	return a.merr != nil && a.merr.Len() > 0
}

// ErrorOrNil returns a single InvalidState error enumerating every recorded
// failure, or nil if none were recorded.
func (a *Accumulator) ErrorOrNil() error {
	if !a.HasErrors() {
		return nil
	}
	return &Error{Kind: InvalidState, msg: a.merr.Error()}
}
