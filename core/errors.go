package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateProperty is returned when a schema is interned with the same name twice.
	ErrDuplicateProperty = errors.New("duplicate property")
	// ErrUnknownProperty is returned when a property name does not resolve against a schema.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrEmptyProperty is returned for blank property names.
	ErrEmptyProperty = errors.New("empty property name")

	// ErrMissingSchema is returned by a builder finalized without a schema.
	ErrMissingSchema = errors.New("missing schema")
	// ErrMissingInitialValues is returned by a builder finalized without initial values.
	ErrMissingInitialValues = errors.New("missing initial values")
	// ErrIncompleteProperties is returned when a schema property lacks an initial value.
	ErrIncompleteProperties = errors.New("incomplete properties")
	// ErrEmptyPopulation is returned when a model is built with fewer than one agent.
	ErrEmptyPopulation = errors.New("empty population")
	// ErrInvalidOverride is returned when per-agent initial values target an agent outside the population.
	ErrInvalidOverride = errors.New("invalid agent override")

	// ErrUnknownParameter is returned when an operation reads a parameter the model does not define.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrParameterRange is returned when a parameter read by an operation is
	// NaN, infinite or rounds outside the int64 range.
	ErrParameterRange = errors.New("parameter out of range")
	// ErrModelConsumed is returned when Run is called on a model that already ran.
	ErrModelConsumed = errors.New("model already consumed")
)

func parameterError(kind error, name string) error {
	return fmt.Errorf("%w %q", kind, name)
}

// SchemaError reports a name resolution problem against a Schema. Kind is one
// of ErrDuplicateProperty, ErrUnknownProperty or ErrEmptyProperty and is
// matched by errors.Is.
type SchemaError struct {
	Kind     error
	Property string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %v %q", e.Kind, e.Property)
}

// Unwrap exposes the error kind to errors.Is.
func (e *SchemaError) Unwrap() error { return e.Kind }

// BuildError is returned by builders when a factory or model cannot be
// constructed. No partially built value accompanies a BuildError.
type BuildError struct {
	// Component names the builder that failed ("factory" or "model").
	Component string
	// Kind is the build error sentinel.
	Kind error
	// Missing lists property names lacking an initial value (ErrIncompleteProperties only).
	Missing []string
	// Err carries the underlying cause, e.g. a SchemaError found during validation.
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "build %s: %v", e.Component, e.Kind)

	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Missing, ", "))
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *BuildError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// StepError is raised while applying an operation during a run. It is fatal
// for the run in progress.
type StepError struct {
	Step      int
	Agent     int
	Operation int
	Kind      OperationKind
	Err       error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d agent %d operation %d (%s): %v", e.Step, e.Agent, e.Operation, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error { return e.Err }

// IsBuildError reports whether err originates from factory or model construction.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// IsStepError reports whether err is a run-time invariant violation.
func IsStepError(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}
