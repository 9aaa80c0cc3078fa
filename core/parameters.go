package core

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// Parameters maps run parameter names to floating point values. Parameters are
// read-only input to operations and run control and are never part of agent
// state.
type Parameters map[string]float64

// Clone returns an independent copy. Cloning a nil map yields an empty map.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	maps.Copy(out, p)

	return out
}

// Merge returns a copy of p overlaid with the entries of other.
func (p Parameters) Merge(other Parameters) Parameters {
	out := p.Clone()
	maps.Copy(out, other)

	return out
}

// Keys returns the parameter names sorted lexically.
func (p Parameters) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Equal reports whether both maps hold the same names and values. NaN equals
// NaN so that decoded parameters compare equal to their source.
func (p Parameters) Equal(other Parameters) bool {
	if len(p) != len(other) {
		return false
	}

	for k, v := range p {
		ov, ok := other[k]
		if !ok {
			return false
		}

		if v != ov && !(math.IsNaN(v) && math.IsNaN(ov)) {
			return false
		}
	}

	return true
}

// Strings formats every value with strconv's shortest round-trip form. Unlike
// JSON numbers it represents NaN and ±Inf.
func (p Parameters) Strings() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	return out
}

// ParseParameters is the inverse of Parameters.Strings.
func ParseParameters(m map[string]string) (Parameters, error) {
	out := make(Parameters, len(m))

	for k, s := range m {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}

		out[k] = v
	}

	return out, nil
}
