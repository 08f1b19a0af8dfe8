// Package apperr defines the error kinds surfaced past the service boundary
// and their HTTP status mapping.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for clients.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidArgument
	KindUnauthenticated
	KindPermissionDenied
	KindConflict
	KindTooManyRequests
	KindUnavailable
)

// DefaultMessage is shown when an unclassified error reaches a handler.
const DefaultMessage = "予期しないエラーが発生しました"

// Error carries a kind, a machine-readable code and a user-facing message.
// Err is the underlying cause and is never shown to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing parlor, room or account.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// InvalidArgument reports a malformed request.
func InvalidArgument(code, message string) *Error {
	return &Error{Kind: KindInvalidArgument, Code: code, Message: message}
}

// Internal wraps an unexpected failure behind a safe message.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: message, Err: err}
}

// New builds an error of any kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// From converts any error into an *Error. Unknown errors become Internal
// with DefaultMessage.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(DefaultMessage, err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps an error to its response status.
func HTTPStatus(err error) int {
	switch From(err).Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
