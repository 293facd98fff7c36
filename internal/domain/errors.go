package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing primary resource.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals a malformed request field.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownFacetValue signals a facet selection absent from the facet index.
	ErrUnknownFacetValue = errors.New("unknown facet value")
	// ErrUpstreamStore signals a record store failure.
	ErrUpstreamStore = errors.New("record store unavailable")
	// ErrInvalidTransition signals a backward or terminal purchase status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyExists signals an insert under an identifier that is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrMetricsRegression signals a popularity metric decrease without correction.
	ErrMetricsRegression = errors.New("popularity metrics cannot decrease")
	// ErrUnauthorized signals a missing or invalid caller identity.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap exposes ErrValidation and, when present, the more specific cause.
func (e *ValidationError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrValidation, e.cause}
	}
	return []error{ErrValidation}
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewUnknownFacetValue creates a validation error for a facet value missing from the index.
func NewUnknownFacetValue(field, value string) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("unknown value %q", value),
		cause:   ErrUnknownFacetValue,
	}
}

// UpstreamError wraps a record store failure with the operation that failed.
// The operation and cause are for logs only and never reach API clients.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstreamStore.Error(), e.Op, e.Err)
}

// Unwrap exposes ErrUpstreamStore and the underlying driver error.
func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstreamStore, e.Err} }

// NewUpstreamError wraps err as a record store failure. Returns nil for a nil err.
func NewUpstreamError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: err}
}
