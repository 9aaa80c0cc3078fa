package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/internal/testutil"
)

func TestFactoryBuilder_Build(t *testing.T) {
	sp := testutil.Energy()

	f, err := NewFactoryBuilder().Schema(sp.Schema).InitialValues(sp.Initial).Operations(sp.Ops).Build()
	require.NoError(t, err)

	assert.Same(t, sp.Schema, f.Schema())
	assert.Same(t, sp.Ops, f.Operations())
	assert.Equal(t, []int64{10}, f.Template())
}

func TestFactoryBuilder_MissingInputs(t *testing.T) {
	sp := testutil.Energy()

	_, err := NewFactoryBuilder().InitialValues(sp.Initial).Build()
	assert.ErrorIs(t, err, core.ErrMissingSchema)

	_, err = NewFactoryBuilder().Schema(sp.Schema).Build()
	assert.ErrorIs(t, err, core.ErrMissingInitialValues)
	assert.True(t, core.IsBuildError(err))
}

func TestFactoryBuilder_IncompleteProperties(t *testing.T) {
	s := core.MustSchema("a", "b", "c")

	_, err := NewFactoryBuilder().Schema(s).InitialValues(map[string]int64{"b": 1}).Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIncompleteProperties)

	var be *core.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, []string{"a", "c"}, be.Missing)
}

func TestFactoryBuilder_UnknownProperty(t *testing.T) {
	s := core.MustSchema("energy")

	_, err := NewFactoryBuilder().Schema(s).
		InitialValues(map[string]int64{"energy": 1, "mass": 2}).
		Build()
	assert.ErrorIs(t, err, core.ErrUnknownProperty)

	_, err = NewFactoryBuilder().Schema(s).
		InitialValues(map[string]int64{"energy": 1}).
		Operations(core.NewOperationList(core.AddToProperty("mass", 1))).
		Build()
	assert.ErrorIs(t, err, core.ErrUnknownProperty)

	var se *core.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "mass", se.Property)
}

func TestFactoryBuilder_DefaultsToEmptyOperations(t *testing.T) {
	f, err := NewFactoryBuilder().Schema(core.MustSchema("x")).InitialValues(map[string]int64{"x": 4}).Build()
	require.NoError(t, err)

	assert.Equal(t, 0, f.Operations().Len())

	next, err := f.CreateAgent().Step(nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, next.Values())
}

func TestFactoryBuilder_InitialValuesAreCopied(t *testing.T) {
	initial := map[string]int64{"x": 1}
	b := NewFactoryBuilder().Schema(core.MustSchema("x")).InitialValues(initial)
	initial["x"] = 99

	f, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, f.Template())
}

func TestFactory_CreateAgent(t *testing.T) {
	sp := testutil.NewSpeciesBuilder().Property("energy", 10).Property("age", 0).Build()

	f, err := NewFactoryBuilder().Schema(sp.Schema).InitialValues(sp.Initial).Operations(sp.Ops).Build()
	require.NoError(t, err)

	a := f.CreateAgent()
	b := f.CreateAgent()

	assert.Equal(t, sp.Schema.Len(), a.Len())
	assert.Equal(t, a.Values(), b.Values())
	assert.Same(t, a.Operations(), b.Operations())
	assert.Same(t, a.Schema(), b.Schema())

	tmpl := f.Template()
	tmpl[0] = -1
	assert.Equal(t, []int64{10, 0}, f.CreateAgent().Values())
}

func TestFactory_CreateAgentWith(t *testing.T) {
	sp := testutil.NewSpeciesBuilder().Property("energy", 10).Property("age", 0).Build()

	f, err := NewFactoryBuilder().Schema(sp.Schema).InitialValues(sp.Initial).Build()
	require.NoError(t, err)

	a, err := f.CreateAgentWith(map[string]int64{"age": 7})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"energy": 10, "age": 7}, a.Map())

	_, err = f.CreateAgentWith(map[string]int64{"mass": 1})
	assert.ErrorIs(t, err, core.ErrUnknownProperty)

	assert.Equal(t, []int64{10, 0}, f.Template())
}
