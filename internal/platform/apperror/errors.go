// Package apperror defines the typed errors shared by every layer of the service.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in API error bodies.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeBookingConflict = "BOOKING_CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// AppError is an error with an HTTP status and a machine-readable code.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches structured details and returns the same error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// NewValidationError reports malformed or missing input.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewNotFoundError reports that an entity with the given id does not exist.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    entity + " not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"id": id},
	}
}

// NewBookingConflictError reports that a requested time range overlaps an existing booking.
func NewBookingConflictError(message string) *AppError {
	return &AppError{Code: CodeBookingConflict, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewInternalError reports a broken invariant inside the service.
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// NewUnavailableError reports a failing or unreachable dependency.
func NewUnavailableError(message string, err error) *AppError {
	return &AppError{Code: CodeUnavailable, Message: message, HTTPStatus: http.StatusServiceUnavailable, Err: err}
}

// As extracts an *AppError from the chain of err.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return HasCode(err, CodeValidation) }

// IsBookingConflict reports whether err is an overlap rejection.
func IsBookingConflict(err error) bool { return HasCode(err, CodeBookingConflict) }
