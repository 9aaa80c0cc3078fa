package util

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation failure with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}

	return fmt.Sprintf("validation error for field '%s' (%v): %s", e.Field, e.Value, e.Message)
}

// ValidationErrors collects every problem found in one validation pass.
type ValidationErrors []*ValidationError

// Add appends a new ValidationError.
func (v *ValidationErrors) Add(field string, value any, format string, args ...any) {
	*v = append(*v, &ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when no errors were collected, the receiver otherwise.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}

	return v
}

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}

	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.As.
func (v ValidationErrors) Unwrap() []error {
	out := make([]error, len(v))
	for i, e := range v {
		out[i] = e
	}

	return out
}
