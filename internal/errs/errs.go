// Package errs defines the error kinds surfaced by the lifecycle engine and
// translated into status codes by the HTTP layer.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation error"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream error"
	default:
		return "unknown error"
	}
}

// Error is a classified error with a user-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, errs.ErrNotFound) matches any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound   = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrValidation = &Error{Kind: KindValidation, Msg: "validation error"}
	ErrConflict   = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrUpstream   = &Error{Kind: KindUpstream, Msg: "upstream error"}
)

// NotFound returns a not-found error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Validation returns a validation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a conflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Upstream wraps a failed call to a third-party service. err may be nil.
func Upstream(err error, format string, args ...any) error {
	return &Error{Kind: KindUpstream, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
