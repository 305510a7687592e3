// Package apperr defines the error taxonomy shared by the store and the
// HTTP handlers. Every failed precondition maps to a distinct kind so
// callers can branch on it; nothing is collapsed into a generic failure.
package apperr

import (
	"errors"
	"net/http"
)

// Machine-readable error codes.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeDuplicateReview    = "DUPLICATE_REVIEW"
	CodeAlreadyFavorited   = "ALREADY_FAVORITED"
	CodeConflict           = "CONFLICT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error carries a machine-readable code, a client-safe message and the
// HTTP status the handlers respond with. Cause is for server-side logs
// only and is never sent to clients.
type Error struct {
	Code       string
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *Error) Error() string { return e.Message }

// Unwrap lets errors.Is and errors.As traverse the cause chain.
func (e *Error) Unwrap() error { return e.Cause }

// NotFound builds a 404 error for a named resource, e.g. "Book not found".
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found", HTTPStatus: http.StatusNotFound}
}

// Validation builds a 400 error for malformed input. Never retried.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, HTTPStatus: http.StatusBadRequest}
}

// DuplicateReview is the business-rule violation for a second review by
// the same user on the same book.
func DuplicateReview() *Error {
	return &Error{Code: CodeDuplicateReview, Message: "You have already reviewed this book", HTTPStatus: http.StatusBadRequest}
}

// AlreadyFavorited is returned when adding a book that is already in the
// user's favorites. Removal of an absent favorite is silent; only the add
// side errors.
func AlreadyFavorited() *Error {
	return &Error{Code: CodeAlreadyFavorited, Message: "Book already in favorites", HTTPStatus: http.StatusBadRequest}
}

// Conflict builds a 409 error for unique-constraint violations such as a
// duplicate category name or email.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg, HTTPStatus: http.StatusConflict}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg, HTTPStatus: http.StatusUnauthorized}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg, HTTPStatus: http.StatusForbidden}
}

// Storage wraps a storage timeout or connectivity failure. The core never
// retries these; retry policy belongs to the caller.
func Storage(cause error) *Error {
	return &Error{
		Code:       CodeStorageUnavailable,
		Message:    "storage unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// Internal wraps an unexpected server-side error. The cause is logged,
// never returned to the client.
func Internal(cause error) *Error {
	return &Error{
		Code:       CodeInternal,
		Message:    "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// As extracts the *Error from err's chain, or nil if there is none.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	e := As(err)
	return e != nil && e.Code == code
}
