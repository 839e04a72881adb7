package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures so transports can map them to status codes
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeInternal     ErrorType = "INTERNAL"
	ErrorTypeExternal     ErrorType = "EXTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error type to an HTTP status code
func (e *AppError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return newError(ErrorTypeNotFound, message, nil)
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message, nil)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message, nil)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return newError(ErrorTypeUnauthorized, message, nil)
}

// NewForbiddenError is returned when the caller is known but lacks the required role
func NewForbiddenError(message string) *AppError {
	return newError(ErrorTypeForbidden, message, nil)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return newError(ErrorTypeInternal, message, err)
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return newError(ErrorTypeExternal, message, err)
}

// As extracts the first AppError in the chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether any AppError in the chain has the given type
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// IsNotFound is shorthand for IsType(err, ErrorTypeNotFound)
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// StatusCode returns the HTTP status for err, defaulting to 500 for untyped errors
func StatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
