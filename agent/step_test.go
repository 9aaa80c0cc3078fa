package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/internal/testutil"
)

func newFactory(t *testing.T, sp testutil.Species) *Factory {
	t.Helper()

	f, err := NewFactoryBuilder().Schema(sp.Schema).InitialValues(sp.Initial).Operations(sp.Ops).Build()
	require.NoError(t, err)

	return f
}

func TestAgent_StepDoesNotMutateReceiver(t *testing.T) {
	a0 := newFactory(t, testutil.Energy()).CreateAgent()

	a1, err := a0.Step(nil)
	require.NoError(t, err)

	v0, _ := a0.Value("energy")
	v1, _ := a1.Value("energy")

	assert.Equal(t, int64(10), v0)
	assert.Equal(t, int64(11), v1)
	assert.Same(t, a0.Operations(), a1.Operations())
}

func TestAgent_StepIsDeterministic(t *testing.T) {
	sp := testutil.NewSpeciesBuilder().
		Property("energy", 3).
		Property("age", 1).
		Op(
			core.AddFromProperty("energy", "age"),
			core.MultiplyProperty("energy", 2),
			core.AddToProperty("age", 1),
			core.ClampProperty("energy", 0, 1000),
		).
		Build()

	a := newFactory(t, sp).CreateAgent()

	x, err := a.Step(nil)
	require.NoError(t, err)

	y, err := a.Step(nil)
	require.NoError(t, err)

	assert.Equal(t, x.Values(), y.Values())
	assert.Equal(t, []int64{8, 2}, x.Values())
}

func TestAgent_StepFollowsListOrder(t *testing.T) {
	addThenMul := testutil.NewSpeciesBuilder().
		Property("x", 0).
		Op(core.AddToProperty("x", 5), core.MultiplyProperty("x", 0)).
		Build()
	mulThenAdd := testutil.NewSpeciesBuilder().
		Property("x", 0).
		Op(core.MultiplyProperty("x", 0), core.AddToProperty("x", 5)).
		Build()

	a, err := newFactory(t, addThenMul).CreateAgent().Step(nil)
	require.NoError(t, err)

	b, err := newFactory(t, mulThenAdd).CreateAgent().Step(nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{0}, a.Values())
	assert.Equal(t, []int64{5}, b.Values())
}

func TestAgent_StepMatchesFoldOfApply(t *testing.T) {
	sp := testutil.NewSpeciesBuilder().
		Property("energy", 10).
		Property("age", 2).
		Op(core.AddToProperty("energy", 1), core.AddFromParameter("age", "growth"), core.SetProperty("energy", 4)).
		Build()
	params := core.Parameters{"growth": 3}

	a := newFactory(t, sp).CreateAgent()

	stepped, err := a.Step(params)
	require.NoError(t, err)

	folded := a
	for _, op := range sp.Ops.All() {
		folded, err = folded.Apply(op, params)
		require.NoError(t, err)
	}

	assert.Equal(t, folded.Values(), stepped.Values())
	assert.Equal(t, []int64{4, 5}, stepped.Values())
}

func TestAgent_StepError(t *testing.T) {
	sp := testutil.NewSpeciesBuilder().
		Property("energy", 10).
		Op(core.AddToProperty("energy", 1), core.AddFromParameter("energy", "growth")).
		Build()

	a := newFactory(t, sp).CreateAgent()

	next, err := a.Step(core.Parameters{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownParameter)

	var se *core.StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Operation)

	// The receiver is returned unchanged.
	assert.Equal(t, a.Values(), next.Values())
}

func TestAgent_Accessors(t *testing.T) {
	a := newFactory(t, testutil.NewSpeciesBuilder().Property("a", 1).Property("b", 2).Build()).CreateAgent()

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, int64(2), a.At(1))
	assert.Equal(t, map[string]int64{"a": 1, "b": 2}, a.Map())
	assert.Equal(t, []int64{9, 1, 2}, a.AppendValues([]int64{9}))

	_, err := a.Value("mass")
	assert.ErrorIs(t, err, core.ErrUnknownProperty)

	vals := a.Values()
	vals[0] = 100
	assert.Equal(t, int64(1), a.At(0))
}
