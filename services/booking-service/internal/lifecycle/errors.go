package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies the user-facing failures of an engine operation.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindUnavailable       Kind = "Unavailable"
	KindForbidden         Kind = "Forbidden"
	KindInvalidTransition Kind = "InvalidTransition"
	KindValidationFailed  Kind = "ValidationFailed"
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is matches the kind sentinels below, so errors.Is(err, ErrForbidden)
// holds for any Forbidden error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Kind == e.Kind
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrValidationFailed  = &Error{Kind: KindValidationFailed}
)

// KindOf returns the kind of an engine error, or "" for infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func unavailable(format string, args ...any) error {
	return newError(KindUnavailable, format, args...)
}

func forbidden(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

func invalidTransition(format string, args ...any) error {
	return newError(KindInvalidTransition, format, args...)
}

func validationFailed(format string, args ...any) error {
	return newError(KindValidationFailed, format, args...)
}
