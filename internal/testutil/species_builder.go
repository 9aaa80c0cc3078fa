package testutil

import (
	"maps"

	"github.com/hupe1980/agentsim/core"
)

// SpeciesBuilder helps construct the species inputs of a model (schema,
// initial values, operations) with fluent chaining for tests.
// Example:
//
//	sp := NewSpeciesBuilder().Property("energy", 10).Op(core.AddToProperty("energy", 1)).Build()
type SpeciesBuilder struct {
	names   []string
	initial map[string]int64
	ops     []core.Operation
}

// NewSpeciesBuilder creates an empty builder.
func NewSpeciesBuilder() *SpeciesBuilder {
	return &SpeciesBuilder{initial: map[string]int64{}}
}

// Property appends a property with its initial value (chainable).
func (b *SpeciesBuilder) Property(name string, initial int64) *SpeciesBuilder {
	b.names = append(b.names, name)
	b.initial[name] = initial

	return b
}

// Op appends operations in application order (chainable).
func (b *SpeciesBuilder) Op(ops ...core.Operation) *SpeciesBuilder {
	b.ops = append(b.ops, ops...)
	return b
}

// Species is the frozen result of a SpeciesBuilder.
type Species struct {
	Schema  *core.Schema
	Names   []string
	Initial map[string]int64
	Ops     *core.OperationList
}

// Build interns the schema and freezes the operation list. It panics on an
// invalid schema since fixtures are expected to be well formed.
func (b *SpeciesBuilder) Build() Species {
	return Species{
		Schema:  core.MustSchema(b.names...),
		Names:   append([]string(nil), b.names...),
		Initial: maps.Clone(b.initial),
		Ops:     core.NewOperationList(b.ops...),
	}
}

// Energy returns the canonical single-property fixture: energy starts at 10
// and grows by one every step.
func Energy() Species {
	return NewSpeciesBuilder().
		Property("energy", 10).
		Op(core.AddToProperty("energy", 1)).
		Build()
}
