package types

import "fmt"

// Kind classifies a domain error. Transport maps kinds to status codes.
type Kind string

const (
	KindNotFound        Kind = "notFound"
	KindAlreadyPaired   Kind = "alreadyPaired"
	KindInvalidInput    Kind = "invalidInput"
	KindUpstream        Kind = "upstream"
	KindUnauthenticated Kind = "unauthenticated"
)

// Sentinels for errors.Is checks. Only the Kind is compared.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrAlreadyPaired   = &Error{Kind: KindAlreadyPaired}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrUpstream        = &Error{Kind: KindUpstream}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind. Unauthenticated is also an upstream failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindUpstream && e.Kind == KindUnauthenticated
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func AlreadyPaired(format string, args ...any) *Error {
	return newError(KindAlreadyPaired, format, args...)
}

func InvalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, format, args...)
}

// Upstream wraps a failed call to an external provider.
func Upstream(err error, format string, args ...any) *Error {
	e := newError(KindUpstream, format, args...)
	e.Err = err
	return e
}

// Unauthenticated marks a provider rejection that needs re-authorization.
func Unauthenticated(format string, args ...any) *Error {
	return newError(KindUnauthenticated, format, args...)
}
