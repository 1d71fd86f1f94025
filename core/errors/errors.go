package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind uint8

const (
	// KindInternal covers failures outside the taxonomy (storage, encoding).
	KindInternal Kind = iota
	// KindAuthorization means the caller does not own or administer the resource.
	KindAuthorization
	// KindState means the operation is invalid in the current state.
	KindState
	// KindResource means a requested amount exceeds what is available or allowed.
	KindResource
	// KindIntegrity means a supplied entity does not match a stored commitment.
	KindIntegrity
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindResource:
		return "resource"
	case KindIntegrity:
		return "integrity"
	default:
		return "internal"
	}
}

// Error is a classified rejection. Sentinels are compared by identity, so
// errors.Is keeps working after callers wrap them with additional context.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.err != nil {
		if e.msg == "" {
			return e.err.Error()
		}
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap exposes the wrapped cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// New constructs a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// Wrap classifies err under kind while keeping it reachable via errors.Is.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// Authorization constructs an authorization error.
func Authorization(msg string) *Error { return New(KindAuthorization, msg) }

// State constructs a state machine error.
func State(msg string) *Error { return New(KindState, msg) }

// Resource constructs a resource exhaustion or bounds error.
func Resource(msg string) *Error { return New(KindResource, msg) }

// Integrity constructs a commitment mismatch error.
func Integrity(msg string) *Error { return New(KindIntegrity, msg) }

// KindOf reports the classification of err, or KindInternal when err carries
// no classification.
func KindOf(err error) Kind {
	var classified *Error
	if stderrors.As(err, &classified) && classified != nil {
		return classified.Kind
	}
	return KindInternal
}

// IsAuthorization reports whether err is an authorization failure.
func IsAuthorization(err error) bool { return err != nil && KindOf(err) == KindAuthorization }

// IsState reports whether err is a state machine failure.
func IsState(err error) bool { return err != nil && KindOf(err) == KindState }

// IsResource reports whether err is a resource failure.
func IsResource(err error) bool { return err != nil && KindOf(err) == KindResource }

// IsIntegrity reports whether err is an integrity failure.
func IsIntegrity(err error) bool { return err != nil && KindOf(err) == KindIntegrity }
