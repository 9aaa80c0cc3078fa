package agent

import (
	"github.com/hupe1980/agentsim/core"
)

const component = "factory"

// Factory binds a schema, a dense initial value template and an OperationList
// into a reusable template for agents of one species. A Factory is immutable
// and safe for concurrent use; the same factory may feed many models.
type Factory struct {
	schema   *core.Schema
	template []int64
	ops      *core.OperationList
}

// FactoryBuilder accumulates the inputs of a Factory. Build is the only way to
// obtain a Factory and returns a *core.BuildError instead of a partially
// initialized value when an input is missing.
type FactoryBuilder struct {
	schema  *core.Schema
	initial map[string]int64
	ops     *core.OperationList
}

// NewFactoryBuilder returns an empty builder.
func NewFactoryBuilder() *FactoryBuilder { return &FactoryBuilder{} }

// Schema sets the frozen property schema (chainable).
func (b *FactoryBuilder) Schema(s *core.Schema) *FactoryBuilder { b.schema = s; return b }

// InitialValues sets the initial value of every property (chainable). The
// map is copied.
func (b *FactoryBuilder) InitialValues(values map[string]int64) *FactoryBuilder {
	b.initial = make(map[string]int64, len(values))
	for k, v := range values {
		b.initial[k] = v
	}

	return b
}

// Operations sets the shared operation list (chainable).
func (b *FactoryBuilder) Operations(ops *core.OperationList) *FactoryBuilder { b.ops = ops; return b }

// Build validates the accumulated inputs and converts the initial value
// mapping into the dense template array. This is the only place a name keyed
// lookup happens; CreateAgent afterwards is a plain array clone.
func (b *FactoryBuilder) Build() (*Factory, error) {
	if b.schema == nil {
		return nil, &core.BuildError{Component: component, Kind: core.ErrMissingSchema}
	}

	if b.initial == nil {
		return nil, &core.BuildError{Component: component, Kind: core.ErrMissingInitialValues}
	}

	template, missing, err := b.schema.Dense(b.initial)
	if err != nil {
		return nil, &core.BuildError{Component: component, Kind: core.ErrUnknownProperty, Err: err}
	}

	if len(missing) > 0 {
		return nil, &core.BuildError{Component: component, Kind: core.ErrIncompleteProperties, Missing: missing}
	}

	ops := b.ops
	if ops == nil {
		ops = core.NewOperationList()
	}

	if err := ops.Validate(b.schema); err != nil {
		return nil, &core.BuildError{Component: component, Kind: core.ErrUnknownProperty, Err: err}
	}

	return &Factory{schema: b.schema, template: template, ops: ops}, nil
}

// CreateAgent returns a new agent holding a copy of the template and a shared
// reference to the factory's OperationList.
func (f *Factory) CreateAgent() Agent {
	values := make([]int64, len(f.template))
	copy(values, f.template)

	return Agent{values: values, schema: f.schema, ops: f.ops}
}

// CreateAgentWith returns a new agent whose template values are overridden by
// the given named values. Every name must belong to the schema.
func (f *Factory) CreateAgentWith(overrides map[string]int64) (Agent, error) {
	a := f.CreateAgent()

	for name, v := range overrides {
		idx, err := f.schema.IndexOf(name)
		if err != nil {
			return Agent{}, err
		}

		a.values[idx] = v
	}

	return a, nil
}

// Schema returns the factory's schema.
func (f *Factory) Schema() *core.Schema { return f.schema }

// Operations returns the factory's shared operation list.
func (f *Factory) Operations() *core.OperationList { return f.ops }

// Template returns a copy of the dense initial value array.
func (f *Factory) Template() []int64 {
	out := make([]int64, len(f.template))
	copy(out, f.template)

	return out
}
