package config

import (
	"fmt"

	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/internal/util"
)

// OperationConfig is the file form of one operation. Op selects the variant
// and decides which of the remaining fields are read:
//
//	add            property, delta
//	set            property, value
//	multiply       property, factor
//	clamp          property, min, max
//	add_property   property, source
//	add_parameter  property, parameter
type OperationConfig struct {
	Op        string `json:"op" yaml:"op"`
	Property  string `json:"property" yaml:"property"`
	Delta     *int64 `json:"delta,omitempty" yaml:"delta,omitempty"`
	Value     *int64 `json:"value,omitempty" yaml:"value,omitempty"`
	Factor    *int64 `json:"factor,omitempty" yaml:"factor,omitempty"`
	Min       *int64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *int64 `json:"max,omitempty" yaml:"max,omitempty"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	Parameter string `json:"parameter,omitempty" yaml:"parameter,omitempty"`
}

func (c OperationConfig) validate(field string, properties map[string]bool, errs *util.ValidationErrors) {
	if c.Property == "" {
		errs.Add(field+".property", nil, "must not be empty")
	} else if !properties[c.Property] {
		errs.Add(field+".property", c.Property, "unknown property")
	}

	require := func(name string, v *int64) {
		if v == nil {
			errs.Add(field+"."+name, nil, "required for %s", c.Op)
		}
	}

	switch core.OperationKind(c.Op) {
	case core.KindAdd:
		require("delta", c.Delta)
	case core.KindSet:
		require("value", c.Value)
	case core.KindMultiply:
		require("factor", c.Factor)
	case core.KindClamp:
		require("min", c.Min)
		require("max", c.Max)
	case core.KindAddProperty:
		if !properties[c.Source] {
			errs.Add(field+".source", c.Source, "unknown property")
		}
	case core.KindAddParameter:
		if c.Parameter == "" {
			errs.Add(field+".parameter", nil, "must not be empty")
		}
	default:
		errs.Add(field+".op", c.Op, "valid: add, set, multiply, clamp, add_property, add_parameter")
	}
}

// Operation translates the file form into a core operation.
func (c OperationConfig) Operation() (core.Operation, error) {
	val := func(name string, v *int64) (int64, error) {
		if v == nil {
			return 0, fmt.Errorf("operation %s: missing %s", c.Op, name)
		}

		return *v, nil
	}

	switch core.OperationKind(c.Op) {
	case core.KindAdd:
		d, err := val("delta", c.Delta)
		if err != nil {
			return nil, err
		}

		return core.AddToProperty(c.Property, d), nil
	case core.KindSet:
		v, err := val("value", c.Value)
		if err != nil {
			return nil, err
		}

		return core.SetProperty(c.Property, v), nil
	case core.KindMultiply:
		f, err := val("factor", c.Factor)
		if err != nil {
			return nil, err
		}

		return core.MultiplyProperty(c.Property, f), nil
	case core.KindClamp:
		lo, err := val("min", c.Min)
		if err != nil {
			return nil, err
		}

		hi, err := val("max", c.Max)
		if err != nil {
			return nil, err
		}

		return core.ClampProperty(c.Property, lo, hi), nil
	case core.KindAddProperty:
		return core.AddFromProperty(c.Property, c.Source), nil
	case core.KindAddParameter:
		return core.AddFromParameter(c.Property, c.Parameter), nil
	default:
		return nil, fmt.Errorf("unsupported operation %q", c.Op)
	}
}
