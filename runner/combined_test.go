package runner

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/datadict"
)

func runExperiment(t *testing.T) *Result {
	t.Helper()

	res, err := New().Run(context.Background(), Experiment{
		ID:         "exp-1",
		Builder:    growthBuilder(2),
		Sample:     []core.Parameters{{"growth": 1, "seed": 7}, {"growth": 2, "seed": 7}},
		Iterations: 2,
		Steps:      3,
	})
	require.NoError(t, err)

	return res
}

func TestResult_ToRecordLayout(t *testing.T) {
	res := runExperiment(t)

	rec, err := res.ToRecord(nil)
	require.NoError(t, err)

	defer rec.Release()

	// 4 runs * 3 steps * 2 agents.
	assert.Equal(t, int64(24), rec.NumRows())
	assert.Equal(t, SampleColumn, rec.ColumnName(0))
	assert.Equal(t, IterationColumn, rec.ColumnName(1))
	assert.Equal(t, datadict.StepColumn, rec.ColumnName(2))
	assert.Equal(t, datadict.AgentColumn, rec.ColumnName(3))
	assert.Equal(t, "energy", rec.ColumnName(4))

	samples := rec.Column(0).(*array.Int64).Int64Values()
	assert.Equal(t, int64(0), samples[0])
	assert.Equal(t, int64(1), samples[23])

	energy := rec.Column(4).(*array.Int64).Int64Values()
	assert.Equal(t, []int64{11, 11, 12, 12, 13, 13}, energy[:6])
	assert.Equal(t, []int64{16, 16}, energy[22:])

	info := res.Info()
	assert.Equal(t, "exp-1", info.ExperimentID)
	assert.Equal(t, 4, info.ScheduledRuns)
	assert.Equal(t, 2, info.SampleSize)
	assert.Equal(t, 2, info.Iterations)
}

func TestResult_IPCRoundTrip(t *testing.T) {
	res := runExperiment(t)

	data, err := res.MarshalBinary()
	require.NoError(t, err)

	got, err := ReadIPC(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, res.ExperimentID, got.ExperimentID)
	assert.Equal(t, res.Name, got.Name)
	assert.Equal(t, res.SampleSize, got.SampleSize)
	assert.Equal(t, res.Iterations, got.Iterations)
	assert.Equal(t, res.Duration, got.Duration)
	assert.True(t, res.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, core.Parameters{"seed": 7}, got.Constants)
	assert.Equal(t, []string{"growth"}, got.Varying)

	require.Len(t, got.Runs, len(res.Runs))

	for i, run := range res.Runs {
		back := got.Runs[i]
		assert.Equal(t, run.RunID, back.RunID)
		assert.Equal(t, run.SampleID, back.SampleID)
		assert.Equal(t, run.Iteration, back.Iteration)
		assert.Equal(t, run.Parameters, back.Parameters)
		assert.True(t, run.Data.Equal(back.Data))
		assert.Equal(t, run.Data.Fingerprint(), back.Data.Fingerprint())
		assert.True(t, back.Data.Sealed())
		assert.Equal(t, run.Data.Info().RunID, back.Data.Info().RunID)
		assert.True(t, run.Data.Info().FinishedAt.Equal(back.Data.Info().FinishedAt))
	}
}

func TestResult_NonFiniteParameters(t *testing.T) {
	res, err := New().Run(context.Background(), Experiment{
		Builder: growthBuilder(1),
		Sample:  []core.Parameters{{"rate": math.Inf(1)}, {"rate": math.NaN()}},
		Steps:   1,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.WriteIPC(&buf))

	got, err := ReadIPC(&buf)
	require.NoError(t, err)

	assert.True(t, math.IsInf(got.Runs[0].Parameters["rate"], 1))
	assert.True(t, math.IsNaN(got.Runs[1].Parameters["rate"]))
	assert.Equal(t, []string{"rate"}, got.Varying)
}

func TestResult_ToRecordEmpty(t *testing.T) {
	_, err := (&Result{}).ToRecord(nil)
	assert.ErrorIs(t, err, ErrInvalidResult)
}

func TestReadIPC_InvalidLayout(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: datadict.StepColumn, Type: arrow.PrimitiveTypes.Int64},
		{Name: datadict.AgentColumn, Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer

	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	_, err := ReadIPC(&buf)
	assert.ErrorIs(t, err, ErrInvalidResult)
}
