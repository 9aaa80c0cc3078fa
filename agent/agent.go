package agent

import (
	"github.com/hupe1980/agentsim/core"
)

// Agent is one simulation entity: a dense property array laid out by the
// factory's schema plus a shared handle to the factory's OperationList.
//
// Agents are values. Step never mutates the receiver; it derives a new
// property array and returns a new Agent, so two agents never alias the same
// storage. The zero Agent is not usable; obtain agents from a Factory.
type Agent struct {
	values []int64
	schema *core.Schema
	ops    *core.OperationList
}

// Step applies every operation of the shared list, in declaration order, to a
// copy of the agent's values and returns the resulting agent:
//
//	agent1 = apply(op1, agent0), agent2 = apply(op2, agent1), ...
//
// params are the model's run parameters. A failing operation aborts the fold
// and is returned as a *core.StepError; the receiver remains valid.
func (a Agent) Step(params core.Parameters) (Agent, error) {
	next := make([]int64, len(a.values))
	copy(next, a.values)

	if err := a.ops.Fold(next, core.Env{Schema: a.schema, Parameters: params}); err != nil {
		return a, err
	}

	return Agent{values: next, schema: a.schema, ops: a.ops}, nil
}

// Apply returns the agent obtained by applying a single operation. It is the
// building block of Step, exposed for callers composing their own folds.
func (a Agent) Apply(op core.Operation, params core.Parameters) (Agent, error) {
	next, err := core.Apply(op, core.Env{Schema: a.schema, Parameters: params}, a.values)
	if err != nil {
		return a, err
	}

	return Agent{values: next, schema: a.schema, ops: a.ops}, nil
}

// Len returns the number of properties; always equal to Schema().Len().
func (a Agent) Len() int { return len(a.values) }

// At returns the value stored at schema index i.
func (a Agent) At(i int) int64 { return a.values[i] }

// Value resolves name against the schema and returns its value.
func (a Agent) Value(name string) (int64, error) {
	idx, err := a.schema.IndexOf(name)
	if err != nil {
		return 0, err
	}

	return a.values[idx], nil
}

// Values returns a copy of the dense property array.
func (a Agent) Values() []int64 {
	out := make([]int64, len(a.values))
	copy(out, a.values)

	return out
}

// Map returns the property values keyed by name.
func (a Agent) Map() map[string]int64 { return a.schema.Map(a.values) }

// Schema returns the shared schema.
func (a Agent) Schema() *core.Schema { return a.schema }

// Operations returns the shared operation list.
func (a Agent) Operations() *core.OperationList { return a.ops }

// AppendValues appends the agent's values to dst and returns the extended
// slice. Used by collectors that lay out many agents contiguously.
func (a Agent) AppendValues(dst []int64) []int64 { return append(dst, a.values...) }
