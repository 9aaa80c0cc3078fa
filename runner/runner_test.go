package runner

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsim/artifact"
	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/internal/testutil"
	"github.com/hupe1980/agentsim/model"
)

func growthBuilder(agents int) *model.Builder {
	sp := testutil.NewSpeciesBuilder().
		Property("energy", 10).
		Op(core.AddFromParameter("energy", "growth")).
		Build()

	return model.NewBuilder("growth").
		Schema(sp.Schema).
		InitialValues(sp.Initial).
		OperationList(sp.Ops).
		Parameters(core.Parameters{"growth": 1}).
		Agents(agents)
}

func TestRunner_RunSample(t *testing.T) {
	r := New(func(o *Options) { o.MaxConcurrentRuns = 3 })

	res, err := r.Run(context.Background(), Experiment{
		Builder:    growthBuilder(2),
		Sample:     []core.Parameters{{"growth": 1}, {"growth": 2}},
		Iterations: 2,
		Steps:      3,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ExperimentID)
	assert.Equal(t, "growth", res.Name)
	require.Len(t, res.Runs, 4)
	assert.Equal(t, []string{"growth"}, res.Varying)
	assert.Empty(t, res.Constants)

	run, ok := res.Run(1, 1)
	require.True(t, ok)
	assert.Equal(t, core.Parameters{"growth": 2}, run.Parameters)

	traj, err := run.Data.Trajectory(1, "energy")
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 14, 16}, traj)

	// Replicates of one combination are identical.
	a, _ := res.Run(0, 0)
	b, _ := res.Run(0, 1)
	assert.True(t, a.Data.Equal(b.Data))
	assert.Equal(t, a.Data.Fingerprint(), b.Data.Fingerprint())
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Empty(t, r.Active())
}

func TestRunner_DefaultSampleUsesBuilderParameters(t *testing.T) {
	res, err := New().Run(context.Background(), Experiment{
		Builder:       growthBuilder(1),
		Steps:         2,
		RecordInitial: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Runs, 1)

	assert.Equal(t, core.Parameters{"growth": 1}, res.Constants)
	assert.Equal(t, []int{0, 1, 2}, res.Runs[0].Data.Steps())
}

func TestRunner_StoresResults(t *testing.T) {
	ctx := context.Background()
	store := artifact.NewInMemoryStore()
	r := New(func(o *Options) { o.Store = store })

	res, err := r.Run(ctx, Experiment{ID: "exp-1", Builder: growthBuilder(3), Steps: 4})
	require.NoError(t, err)

	ids, err := store.List(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, []string{res.Runs[0].RunID}, ids)

	dd, err := r.Load(ctx, "exp-1", res.Runs[0].RunID)
	require.NoError(t, err)
	assert.True(t, res.Runs[0].Data.Equal(dd))
}

func TestRunner_StoresNonFiniteParameters(t *testing.T) {
	ctx := context.Background()
	r := New(func(o *Options) { o.Store = artifact.NewInMemoryStore() })

	res, err := r.Run(ctx, Experiment{
		ID:      "exp-inf",
		Builder: growthBuilder(1),
		Sample:  []core.Parameters{{"rate": math.Inf(1)}},
		Steps:   2,
	})
	require.NoError(t, err)

	dd, err := r.Load(ctx, "exp-inf", res.Runs[0].RunID)
	require.NoError(t, err)
	assert.True(t, math.IsInf(dd.Parameters()["rate"], 1))
	assert.True(t, res.Runs[0].Data.Equal(dd))
}

func TestRunner_InvalidExperiment(t *testing.T) {
	r := New()

	_, err := r.Run(context.Background(), Experiment{})
	assert.ErrorIs(t, err, ErrInvalidExperiment)

	_, err = r.Run(context.Background(), Experiment{Builder: growthBuilder(1), Steps: -1})
	assert.ErrorIs(t, err, ErrInvalidExperiment)

	_, err = r.Run(context.Background(), Experiment{Builder: growthBuilder(0), Steps: 1})
	assert.ErrorIs(t, err, core.ErrEmptyPopulation)
}

func TestRunner_UnknownParameterFailsExperiment(t *testing.T) {
	b := model.NewBuilder("broken").
		Properties("energy").
		InitialValues(map[string]int64{"energy": 1}).
		Operations(core.AddFromParameter("energy", "missing"))

	_, err := New().Run(context.Background(), Experiment{Builder: b, Steps: 1})
	assert.ErrorIs(t, err, core.ErrUnknownParameter)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Run(ctx, Experiment{Builder: growthBuilder(1), Steps: 5})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_Stop(t *testing.T) {
	r := New(func(o *Options) { o.MaxConcurrentRuns = 1 })

	assert.ErrorIs(t, r.Stop("unknown"), ErrExperimentNotFound)

	done := make(chan error, 1)

	go func() {
		_, err := r.Run(context.Background(), Experiment{
			ID:         "long",
			Builder:    growthBuilder(1),
			Iterations: 1000,
			Steps:      100_000,
		})
		done <- err
	}()

	require.Eventually(t, func() bool { return len(r.Active()) == 1 }, 5*time.Second, time.Millisecond)
	require.NoError(t, r.Stop("long"))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("experiment did not stop")
	}

	assert.Empty(t, r.Active())
}
