package core

import (
	"fmt"
	"math"
)

// OperationKind tags the concrete variant of an Operation.
type OperationKind string

const (
	// KindAdd adds a constant to one property.
	KindAdd OperationKind = "add"
	// KindSet overwrites one property with a constant.
	KindSet OperationKind = "set"
	// KindMultiply multiplies one property by a constant factor.
	KindMultiply OperationKind = "multiply"
	// KindClamp bounds one property to an inclusive range.
	KindClamp OperationKind = "clamp"
	// KindAddProperty adds the value of a source property to a target property.
	KindAddProperty OperationKind = "add_property"
	// KindAddParameter adds a rounded model parameter to one property.
	KindAddParameter OperationKind = "add_parameter"
)

// Env is the read-only environment an operation is applied in.
type Env struct {
	Schema     *Schema
	Parameters Parameters
}

// Operation is one deterministic state transition on an agent's property
// array. The set of variants is closed: only this package can implement the
// interface, so callers construct operations through AddToProperty,
// SetProperty and the other constructors below. Operations are immutable and
// shared by reference between every agent of a model.
type Operation interface {
	// Kind returns the variant tag.
	Kind() OperationKind
	// String renders the operation for logs and error messages.
	String() string

	// apply mutates values in place. Callers own values.
	apply(values []int64, env Env) error
	// refs lists the property and parameter names the operation resolves.
	refs() (properties []string, parameters []string)
}

// Apply is the pure form of a single operation application: it returns a new
// array holding the result and leaves values untouched. All indices other than
// the ones the operation targets are copied unchanged.
func Apply(op Operation, env Env, values []int64) ([]int64, error) {
	out := make([]int64, len(values))
	copy(out, values)

	if err := op.apply(out, env); err != nil {
		return nil, err
	}

	return out, nil
}

type addToProperty struct {
	property string
	delta    int64
}

// AddToProperty returns an operation replacing property p with p + delta.
func AddToProperty(property string, delta int64) Operation {
	return addToProperty{property: property, delta: delta}
}

func (o addToProperty) Kind() OperationKind { return KindAdd }

func (o addToProperty) String() string { return fmt.Sprintf("add(%s, %+d)", o.property, o.delta) }

func (o addToProperty) apply(values []int64, env Env) error {
	idx, err := env.Schema.IndexOf(o.property)
	if err != nil {
		return err
	}

	values[idx] += o.delta

	return nil
}

func (o addToProperty) refs() ([]string, []string) { return []string{o.property}, nil }

type setProperty struct {
	property string
	value    int64
}

// SetProperty returns an operation overwriting property p with value.
func SetProperty(property string, value int64) Operation {
	return setProperty{property: property, value: value}
}

func (o setProperty) Kind() OperationKind { return KindSet }

func (o setProperty) String() string { return fmt.Sprintf("set(%s, %d)", o.property, o.value) }

func (o setProperty) apply(values []int64, env Env) error {
	idx, err := env.Schema.IndexOf(o.property)
	if err != nil {
		return err
	}

	values[idx] = o.value

	return nil
}

func (o setProperty) refs() ([]string, []string) { return []string{o.property}, nil }

type multiplyProperty struct {
	property string
	factor   int64
}

// MultiplyProperty returns an operation replacing property p with p * factor.
func MultiplyProperty(property string, factor int64) Operation {
	return multiplyProperty{property: property, factor: factor}
}

func (o multiplyProperty) Kind() OperationKind { return KindMultiply }

func (o multiplyProperty) String() string {
	return fmt.Sprintf("multiply(%s, %d)", o.property, o.factor)
}

func (o multiplyProperty) apply(values []int64, env Env) error {
	idx, err := env.Schema.IndexOf(o.property)
	if err != nil {
		return err
	}

	values[idx] *= o.factor

	return nil
}

func (o multiplyProperty) refs() ([]string, []string) { return []string{o.property}, nil }

type clampProperty struct {
	property string
	min, max int64
}

// ClampProperty returns an operation bounding property p to [min, max]. The
// bounds are swapped when given in reverse order.
func ClampProperty(property string, min, max int64) Operation {
	if min > max {
		min, max = max, min
	}

	return clampProperty{property: property, min: min, max: max}
}

func (o clampProperty) Kind() OperationKind { return KindClamp }

func (o clampProperty) String() string {
	return fmt.Sprintf("clamp(%s, %d, %d)", o.property, o.min, o.max)
}

func (o clampProperty) apply(values []int64, env Env) error {
	idx, err := env.Schema.IndexOf(o.property)
	if err != nil {
		return err
	}

	values[idx] = min(max(values[idx], o.min), o.max)

	return nil
}

func (o clampProperty) refs() ([]string, []string) { return []string{o.property}, nil }

type addFromProperty struct {
	target string
	source string
}

// AddFromProperty returns an operation replacing target with target + source,
// both read from the same agent.
func AddFromProperty(target, source string) Operation {
	return addFromProperty{target: target, source: source}
}

func (o addFromProperty) Kind() OperationKind { return KindAddProperty }

func (o addFromProperty) String() string {
	return fmt.Sprintf("add_property(%s, %s)", o.target, o.source)
}

func (o addFromProperty) apply(values []int64, env Env) error {
	dst, err := env.Schema.IndexOf(o.target)
	if err != nil {
		return err
	}

	src, err := env.Schema.IndexOf(o.source)
	if err != nil {
		return err
	}

	values[dst] += values[src]

	return nil
}

func (o addFromProperty) refs() ([]string, []string) {
	return []string{o.target, o.source}, nil
}

type addFromParameter struct {
	property  string
	parameter string
}

// AddFromParameter returns an operation adding the model parameter, rounded
// half away from zero, to property p.
func AddFromParameter(property, parameter string) Operation {
	return addFromParameter{property: property, parameter: parameter}
}

func (o addFromParameter) Kind() OperationKind { return KindAddParameter }

func (o addFromParameter) String() string {
	return fmt.Sprintf("add_parameter(%s, %s)", o.property, o.parameter)
}

func (o addFromParameter) apply(values []int64, env Env) error {
	idx, err := env.Schema.IndexOf(o.property)
	if err != nil {
		return err
	}

	p, ok := env.Parameters[o.parameter]
	if !ok {
		return parameterError(ErrUnknownParameter, o.parameter)
	}

	delta, err := roundParameter(o.parameter, p)
	if err != nil {
		return err
	}

	values[idx] += delta

	return nil
}

// roundParameter rounds v half away from zero. Values without an int64
// representation are rejected instead of converted.
func roundParameter(name string, v float64) (int64, error) {
	r := math.Round(v)
	if math.IsNaN(r) || r >= 0x1p63 || r < -0x1p63 {
		return 0, fmt.Errorf("%w: %v", parameterError(ErrParameterRange, name), v)
	}

	return int64(r), nil
}

func (o addFromParameter) refs() ([]string, []string) {
	return []string{o.property}, []string{o.parameter}
}
