package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsim/core"
)

func TestNewSample_Product(t *testing.T) {
	sample, err := NewSample(map[string]Param{
		"a": IntRange{Min: 1, Max: 2},
		"b": Range{Min: 3, Max: 3.5},
		"c": Values{7, 8, 9},
		"d": Constant(1),
	}, func(o *SampleOptions) { o.N = 3 })
	require.NoError(t, err)
	require.Len(t, sample, 27)

	assert.Equal(t, core.Parameters{"a": 1, "b": 3, "c": 7, "d": 1}, sample[0])
	assert.Equal(t, core.Parameters{"a": 1, "b": 3, "c": 8, "d": 1}, sample[1])
	assert.Equal(t, core.Parameters{"a": 1, "b": 3.25, "c": 7, "d": 1}, sample[3])
	assert.Equal(t, core.Parameters{"a": 2, "b": 3, "c": 7, "d": 1}, sample[9])
	assert.Equal(t, core.Parameters{"a": 2, "b": 3.5, "c": 9, "d": 1}, sample[26])
}

func TestNewSample_Zip(t *testing.T) {
	sample, err := NewSample(map[string]Param{
		"a": Range{Min: 0, Max: 1},
		"b": Values{3, 4},
	}, func(o *SampleOptions) {
		o.N = 2
		o.Zip = true
	})
	require.NoError(t, err)
	assert.Equal(t, []core.Parameters{{"a": 0, "b": 3}, {"a": 1, "b": 4}}, sample)
}

func TestNewSample_ConstantsOnly(t *testing.T) {
	sample, err := NewSample(map[string]Param{"seed": Constant(1)})
	require.NoError(t, err)
	assert.Equal(t, []core.Parameters{{"seed": 1}}, sample)
}

func TestNewSample_Errors(t *testing.T) {
	_, err := NewSample(map[string]Param{"x": Range{Min: 0, Max: 1}})
	assert.ErrorIs(t, err, ErrSampleSize)

	_, err = NewSample(map[string]Param{"x": Values{}})
	assert.Error(t, err)
}

func TestIntRange_Points(t *testing.T) {
	pts, err := IntRange{Min: 0, Max: 4}.points(5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, pts)

	pts, err = IntRange{Min: 1, Max: 2}.points(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 2}, pts)
}

func TestSplitParameters(t *testing.T) {
	constants, varying := SplitParameters([]core.Parameters{
		{"growth": 1, "seed": 7},
		{"growth": 2, "seed": 7},
	})
	assert.Equal(t, core.Parameters{"seed": 7}, constants)
	assert.Equal(t, []string{"growth"}, varying)

	constants, varying = SplitParameters(nil)
	assert.Empty(t, constants)
	assert.Empty(t, varying)
}
