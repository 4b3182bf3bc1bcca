// Package apperr defines the error taxonomy shared by the core services
// and the transports that surface their failures.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindUpstreamUnavailable
	KindDataIntegrity
	KindForbidden
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindUpstreamUnavailable:
		return "upstream unavailable"
	case KindDataIntegrity:
		return "data integrity"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrNotFound            = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrConflict            = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable, Msg: "upstream unavailable"}
	ErrDataIntegrity       = &Error{Kind: KindDataIntegrity, Msg: "data integrity"}
	ErrForbidden           = &Error{Kind: KindForbidden, Msg: "forbidden"}
	ErrInvalid             = &Error{Kind: KindInvalid, Msg: "invalid"}
)

// Error is a classified failure with a caller-facing message.
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

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error  { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) error  { return newf(KindConflict, format, args...) }
func Forbidden(format string, args ...any) error { return newf(KindForbidden, format, args...) }
func Invalid(format string, args ...any) error   { return newf(KindInvalid, format, args...) }

func DataIntegrity(format string, args ...any) error {
	return newf(KindDataIntegrity, format, args...)
}

// Upstream wraps a failure of an external collaborator.
func Upstream(err error, format string, args ...any) error {
	e := newf(KindUpstreamUnavailable, format, args...)
	e.Err = err
	return e
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the response status a transport should use.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalid:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindDataIntegrity:
		return http.StatusUnprocessableEntity
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
