package model

import (
	"errors"
	"maps"
	"slices"

	"github.com/hupe1980/agentsim/agent"
	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/internal/util"
	"github.com/hupe1980/agentsim/logging"
)

const component = "model"

// Options configures a Model at Build time.
type Options struct {
	// RunID identifies the run in logs and results. A uuid is generated when empty.
	RunID string
	// RecordInitial records the initial population as step 0 before stepping.
	RecordInitial bool
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// Builder accumulates the construction input of a Model: name, parameters,
// schema, initial values, operations and population size. Either supply the
// species inputs (Schema/Properties, InitialValues, Operations) or a prebuilt
// Factory; a Factory takes precedence.
//
// A Builder can be reused: every Build call produces an independent Model
// sharing the same immutable factory.
type Builder struct {
	name      string
	params    core.Parameters
	schema    *core.Schema
	schemaErr error
	initial   map[string]int64
	ops       *core.OperationList
	factory   *agent.Factory
	agents    int
	overrides map[int]map[string]int64
}

// NewBuilder creates a builder for a model called name with a population of one.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, agents: 1, params: core.Parameters{}, overrides: map[int]map[string]int64{}}
}

// Parameters merges run parameters into the builder (chainable).
func (b *Builder) Parameters(p core.Parameters) *Builder {
	b.params = b.params.Merge(p)
	return b
}

// Schema sets a prebuilt property schema (chainable).
func (b *Builder) Schema(s *core.Schema) *Builder {
	b.schema, b.schemaErr = s, nil
	return b
}

// Properties interns names into a new schema (chainable). Interning errors
// surface from Build.
func (b *Builder) Properties(names ...string) *Builder {
	b.schema, b.schemaErr = core.NewSchema(names...)
	return b
}

// InitialValues sets the initial value of every property (chainable).
func (b *Builder) InitialValues(values map[string]int64) *Builder {
	b.initial = maps.Clone(values)
	return b
}

// Operations sets the ordered operations applied every step (chainable).
func (b *Builder) Operations(ops ...core.Operation) *Builder {
	b.ops = core.NewOperationList(ops...)
	return b
}

// OperationList sets a prebuilt, shared operation list (chainable).
func (b *Builder) OperationList(ops *core.OperationList) *Builder {
	b.ops = ops
	return b
}

// Factory uses a prebuilt agent factory instead of the species inputs (chainable).
func (b *Builder) Factory(f *agent.Factory) *Builder {
	b.factory = f
	return b
}

// Agents sets the population size (chainable).
func (b *Builder) Agents(n int) *Builder {
	b.agents = n
	return b
}

// Override gives agent i initial values diverging from the species template
// (chainable). Only the named properties change.
func (b *Builder) Override(i int, values map[string]int64) *Builder {
	b.overrides[i] = maps.Clone(values)
	return b
}

// Name returns the model name.
func (b *Builder) Name() string { return b.name }

// Clone returns an independent copy of the builder. The schema, operation
// list and factory are immutable and shared.
func (b *Builder) Clone() *Builder {
	nb := *b
	nb.params = b.params.Clone()
	nb.initial = maps.Clone(b.initial)
	nb.overrides = make(map[int]map[string]int64, len(b.overrides))

	for i, v := range b.overrides {
		nb.overrides[i] = maps.Clone(v)
	}

	return &nb
}

// BuildFactory finalizes the species part of the builder into an agent factory.
func (b *Builder) BuildFactory() (*agent.Factory, error) {
	if b.factory != nil {
		return b.factory, nil
	}

	if b.schemaErr != nil {
		return nil, &core.BuildError{Component: component, Kind: core.ErrMissingSchema, Err: b.schemaErr}
	}

	fb := agent.NewFactoryBuilder().Operations(b.ops)
	if b.schema != nil {
		fb.Schema(b.schema)
	}

	if b.initial != nil {
		fb.InitialValues(b.initial)
	}

	return fb.Build()
}

// Build validates every input and creates the population. It returns either a
// Model ready to Run or a *core.BuildError.
func (b *Builder) Build(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.RunID == "" {
		opts.RunID = util.NewID()
	}

	factory, err := b.BuildFactory()
	if err != nil {
		return nil, err
	}

	if b.agents < 1 {
		return nil, &core.BuildError{Component: component, Kind: core.ErrEmptyPopulation}
	}

	if err := factory.Operations().ValidateParameters(b.params); err != nil {
		kind := core.ErrUnknownParameter
		if errors.Is(err, core.ErrParameterRange) {
			kind = core.ErrParameterRange
		}

		return nil, &core.BuildError{Component: component, Kind: kind, Err: err}
	}

	population := make([]agent.Agent, b.agents)
	for i := range population {
		population[i] = factory.CreateAgent()
	}

	for _, i := range slices.Sorted(maps.Keys(b.overrides)) {
		if i < 0 || i >= b.agents {
			return nil, &core.BuildError{Component: component, Kind: core.ErrInvalidOverride}
		}

		a, err := factory.CreateAgentWith(b.overrides[i])
		if err != nil {
			return nil, &core.BuildError{Component: component, Kind: core.ErrUnknownProperty, Err: err}
		}

		population[i] = a
	}

	return &Model{
		name:          b.name,
		runID:         opts.RunID,
		params:        b.params.Clone(),
		factory:       factory,
		agents:        population,
		recordInitial: opts.RecordInitial,
		logger:        logging.OrNoOp(opts.Logger),
	}, nil
}
