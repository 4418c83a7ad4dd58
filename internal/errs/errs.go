// Package errs defines the coded error type shared across layers for stable
// error mapping between services and the HTTP surface.
package errs

import (
	"errors"
	"net/http"
)

// Kind separates client-correctable failures from server bugs.
type Kind int

const (
	// KindUser marks errors the client can correct (bad input, missing auth,
	// permission denied, name conflicts, not-found). Never logged as faults.
	KindUser Kind = iota
	// KindDeveloper marks invariant violations and exhausted retry budgets.
	// Always logged.
	KindDeveloper
)

// Error carries a stable machine-readable code and a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// User constructs a client-correctable coded error.
func User(code, message string) *Error {
	return &Error{Kind: KindUser, Code: code, Message: message}
}

// Developer constructs a coded error indicating a server-side bug.
func Developer(code, message string) *Error {
	return &Error{Kind: KindDeveloper, Code: code, Message: message}
}

// Validation constructs a VALIDATION_ERROR with structured field details.
func Validation(message string, details any) *Error {
	return &Error{Kind: KindUser, Code: "VALIDATION_ERROR", Message: message, Details: details}
}

// CodeOf returns the stable code of err, or GENERIC_SERVER_ERROR for
// uncoded errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "GENERIC_SERVER_ERROR"
}

// IsUser reports whether err is a client-correctable coded error.
func IsUser(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindUser
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// HTTPStatus maps an error to its response status by code category.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case "VALIDATION_ERROR", "API_KEY_NOT_FOUND":
		return http.StatusBadRequest
	case "API_KEY_EXPIRED":
		return http.StatusUnauthorized
	case "ACCESS_DENIED", "USER_BANNED":
		return http.StatusForbidden
	case "AUTHORIZATION_HEADER_MISSING", "AUTHORIZATION_HEADER_MALFORMATTED":
		return http.StatusPreconditionFailed
	case "RATE_LIMITED":
		return http.StatusTooManyRequests
	}
	if e.Kind == KindDeveloper {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}
