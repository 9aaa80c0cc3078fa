package runner

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/hupe1980/agentsim/core"
)

// ErrSampleSize is returned when a Range is sampled without a positive N.
var ErrSampleSize = errors.New("sample size n must be positive for range parameters")

// Param is one entry of a parameter sample definition: a Constant, a
// discrete set of Values, or a Range / IntRange spread by linspace.
type Param interface {
	points(n int) ([]float64, error)
}

// Constant keeps a parameter fixed across the sample.
type Constant float64

func (c Constant) points(int) ([]float64, error) { return []float64{float64(c)}, nil }

// Values is a predefined set of discrete parameter values.
type Values []float64

func (v Values) points(int) ([]float64, error) {
	if len(v) == 0 {
		return nil, errors.New("values must not be empty")
	}

	return slices.Clone(v), nil
}

// Range spreads n evenly spaced values from Min to Max (inclusive).
type Range struct {
	Min, Max float64
}

func (r Range) points(n int) ([]float64, error) {
	if n < 1 {
		return nil, ErrSampleSize
	}

	return linspace(r.Min, r.Max, n), nil
}

// IntRange is a Range whose sampled values are truncated to integers. The
// interval is widened to Max+1 before truncation so every integer gets an
// equal share; a value landing on Max+1 maps back to Max.
type IntRange struct {
	Min, Max int64
}

func (r IntRange) points(n int) ([]float64, error) {
	if n < 1 {
		return nil, ErrSampleSize
	}

	upper := float64(r.Max + 1)
	out := linspace(float64(r.Min), upper, n)

	for i, v := range out {
		if v == upper {
			out[i] = float64(r.Max)
			continue
		}

		out[i] = float64(int64(v))
	}

	return out, nil
}

func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}

	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)

	for i := range out {
		out[i] = lo + float64(i)*step
	}

	out[n-1] = hi

	return out
}

// SampleOptions configures NewSample.
type SampleOptions struct {
	// N is the number of points drawn from every Range and IntRange.
	N int
	// Zip combines value sets index by index instead of forming their
	// cartesian product. The sample length is that of the shortest set.
	Zip bool
}

// NewSample expands a parameter definition into the list of parameter
// combinations an Experiment runs. Parameters are combined in lexical key
// order, so the first key varies slowest in product mode.
func NewSample(params map[string]Param, optFns ...func(o *SampleOptions)) ([]core.Parameters, error) {
	opts := SampleOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	keys := slices.Sorted(maps.Keys(params))
	sets := make([][]float64, len(keys))

	for i, k := range keys {
		pts, err := params[k].points(opts.N)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}

		sets[i] = pts
	}

	if opts.Zip {
		return zip(keys, sets), nil
	}

	return product(keys, sets), nil
}

func product(keys []string, sets [][]float64) []core.Parameters {
	out := []core.Parameters{{}}

	for i, k := range keys {
		next := make([]core.Parameters, 0, len(out)*len(sets[i]))

		for _, base := range out {
			for _, v := range sets[i] {
				p := base.Clone()
				p[k] = v
				next = append(next, p)
			}
		}

		out = next
	}

	return out
}

func zip(keys []string, sets [][]float64) []core.Parameters {
	if len(keys) == 0 {
		return []core.Parameters{{}}
	}

	n := len(sets[0])
	for _, s := range sets[1:] {
		n = min(n, len(s))
	}

	out := make([]core.Parameters, n)

	for i := range out {
		p := make(core.Parameters, len(keys))
		for j, k := range keys {
			p[k] = sets[j][i]
		}

		out[i] = p
	}

	return out
}

// SplitParameters separates the keys that hold the same value in every
// combination (constants) from those that vary across the sample.
func SplitParameters(sample []core.Parameters) (core.Parameters, []string) {
	constants := core.Parameters{}
	varying := []string{}

	if len(sample) == 0 {
		return constants, varying
	}

	keys := map[string]struct{}{}
	for _, p := range sample {
		for k := range p {
			keys[k] = struct{}{}
		}
	}

	for _, k := range slices.Sorted(maps.Keys(keys)) {
		first, ok := sample[0][k]
		same := ok

		for _, p := range sample[1:] {
			if v, ok := p[k]; !ok || !sameValue(v, first) {
				same = false
				break
			}
		}

		if same {
			constants[k] = first
		} else {
			varying = append(varying, k)
		}
	}

	return constants, varying
}

func sameValue(a, b float64) bool { return a == b || (math.IsNaN(a) && math.IsNaN(b)) }
