// internal/errors/errors.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies an error for the request layer.
type Kind int

const (
	// KindValidation marks malformed or out-of-range input. Never retried.
	KindValidation Kind = iota + 1
	// KindNotFound marks a reference to a record that does not exist.
	KindNotFound
	// KindForbidden marks access to a resource the caller is not part of.
	KindForbidden
	// KindConflict marks a duplicate-creation attempt detected mid-write.
	// The match ledger resolves these internally; it only reaches a caller
	// when the re-read itself fails.
	KindConflict
	// KindDependency marks a transient infrastructure failure (DB, cache).
	// Retry policy belongs to the caller.
	KindDependency
)

// Error carries a kind, a caller-facing message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) error  { return &Error{Kind: KindForbidden, Message: msg} }
func Conflict(msg string) error   { return &Error{Kind: KindConflict, Message: msg} }

func Dependency(err error) error {
	return &Error{Kind: KindDependency, Message: "dependency failure", Err: err}
}

// Map converts repo/infra errors into classified errors.
// Keeps the service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("record not found")

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflict("record already exists")

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return Dependency(err)

	default:
		return Dependency(err)
	}
}

// KindOf returns the kind of a classified error, or 0 for unclassified ones.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return 0
}

// HTTPStatus maps a classified error to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
