// Package apperr defines the error classes shared by every service layer and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

type classified struct {
	kind error
	msg  string
}

func (e *classified) Error() string { return e.msg }
func (e *classified) Unwrap() error { return e.kind }

// NotFound reports a missing entity, e.g. NotFound("course").
func NotFound(entity string) error {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return &classified{kind: ErrNotFound, msg: "resource not found"}
	}
	return &classified{kind: ErrNotFound, msg: capitalize(entity) + " not found"}
}

// Forbidden reports a missing permission or ownership.
func Forbidden(format string, args ...any) error {
	return &classified{kind: ErrForbidden, msg: fmt.Sprintf(format, args...)}
}

// Conflict reports a violated business rule such as a duplicate or a closed window.
func Conflict(format string, args ...any) error {
	return &classified{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) error {
	return &classified{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(format string, args ...any) error {
	return &classified{kind: ErrUnauthorized, msg: fmt.Sprintf(format, args...)}
}

// Status maps err onto an HTTP status code. Unclassified errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text of a classified error. Unexpected
// errors never leak their cause.
func Message(err error) string {
	var c *classified
	if errors.As(err, &c) {
		return c.msg
	}
	switch Status(err) {
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusForbidden:
		return "permission denied"
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusBadRequest:
		return err.Error()
	default:
		return "internal server error"
	}
}

// IsClassified reports whether err belongs to one of the known classes.
func IsClassified(err error) bool {
	return Status(err) != http.StatusInternalServerError
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
