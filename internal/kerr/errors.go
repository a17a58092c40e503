// Package kerr defines the error kinds shared by every Krystal component.
//
// Leaf components (kks, canon, b64, krl, registry) fail fast with a *Error
// carrying one of these kinds. Callers match on kind with errors.Is against
// the sentinel values, or with IsKind:
//
//	if errors.Is(err, kerr.ErrDecode) { ... }
package kerr

import (
	"errors"
	"fmt"
)

// Kind categorizes an error.
type Kind string

const (
	// KindInvalidArgument indicates a bad pulse value (negative or non-integer).
	KindInvalidArgument Kind = "INVALID_ARGUMENT"

	// KindDecode indicates malformed base64url, malformed embedded JSON,
	// or a decoded payload that is not a JSON object.
	KindDecode Kind = "DECODE_ERROR"

	// KindTypeMismatch indicates a JSON value of the wrong shape or type.
	KindTypeMismatch Kind = "TYPE_MISMATCH"

	// KindSchema indicates a required registry key is missing.
	KindSchema Kind = "SCHEMA_ERROR"

	// KindNonFinite indicates NaN or Infinity where a number was expected.
	KindNonFinite Kind = "NON_FINITE"
)

// Error is a kind-tagged error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is matching. Only the Kind is compared.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrDecode          = &Error{Kind: KindDecode}
	ErrTypeMismatch    = &Error{Kind: KindTypeMismatch}
	ErrSchema          = &Error{Kind: KindSchema}
	ErrNonFinite       = &Error{Kind: KindNonFinite}
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with a message and an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether any error in err's chain is a *Error of kind.
func IsKind(err error, kind Kind) bool {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return ""
}
