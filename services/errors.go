package services

import (
	"errors"
	"net/http"
)

// ServiceError is a workflow failure that maps onto an HTTP response
type ServiceError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewValidationError reports a missing or malformed field
func NewValidationError(code, message string) *ServiceError {
	return &ServiceError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// NewConflictError reports a request that does not fit the current state.
// State conflicts are surfaced as 400 like the rest of the validation family.
func NewConflictError(code, message string) *ServiceError {
	return &ServiceError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// NewUnauthorizedError reports a missing or invalid identity
func NewUnauthorizedError(code, message string) *ServiceError {
	return &ServiceError{Status: http.StatusUnauthorized, Code: code, Message: message}
}

// NewForbiddenError reports an identity acting on something it does not own
func NewForbiddenError(code, message string) *ServiceError {
	return &ServiceError{Status: http.StatusForbidden, Code: code, Message: message}
}

// NewNotFoundError reports a missing record
func NewNotFoundError(code, message string) *ServiceError {
	return &ServiceError{Status: http.StatusNotFound, Code: code, Message: message}
}

// NewInternalError wraps a backend failure. The message is safe to show callers.
func NewInternalError(code, message string, err error) *ServiceError {
	return &ServiceError{Status: http.StatusInternalServerError, Code: code, Message: message, Err: err}
}

// AsServiceError extracts a *ServiceError from err
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}
