package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrNoTrendRows    = errors.New("no trend rows parsed")
	ErrInvalidFilter  = errors.New("invalid filter")
	ErrYearOutOfRange = errors.New("year out of range")
	ErrYearOrder      = errors.New("from year after to year")
	ErrUpstreamStatus = errors.New("upstream returned error status")
	ErrDecode         = errors.New("upstream returned invalid JSON")
)

// ValidationError wraps a sentinel with the offending field.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
