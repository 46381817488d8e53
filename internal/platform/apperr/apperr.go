package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies an error by how callers are expected to react to it.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindAuthorization   Kind = "authorization"
	KindNotFound        Kind = "not_found"
	KindCollaborator    Kind = "collaborator"
	KindDeserialization Kind = "deserialization"
	KindInternal        Kind = "internal"
)

// Error is the error type returned by domain services.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound)
// works for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrAuthorization   = &Error{Kind: KindAuthorization}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrCollaborator    = &Error{Kind: KindCollaborator}
	ErrDeserialization = &Error{Kind: KindDeserialization}
)

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Collaborator wraps a failure of an external planning or extraction service.
func Collaborator(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindCollaborator, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Deserialization(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindDeserialization, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StatusCode maps an error kind to the HTTP status reported to clients.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation, KindDeserialization:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindCollaborator:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HTTPError converts err into an echo.HTTPError. Internal errors are not
// echoed back to the client.
func HTTPError(err error) *echo.HTTPError {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}
