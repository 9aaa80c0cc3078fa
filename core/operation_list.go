package core

// OperationList is an ordered, immutable sequence of operations. One list is
// shared by pointer between a factory and every agent it produces; nothing is
// ever cloned per agent. The zero value and a nil *OperationList are both
// valid empty lists.
type OperationList struct {
	ops []Operation
}

// NewOperationList captures ops in the given order. The input slice is copied.
func NewOperationList(ops ...Operation) *OperationList {
	cp := make([]Operation, len(ops))
	copy(cp, ops)

	return &OperationList{ops: cp}
}

// Len returns the number of operations.
func (l *OperationList) Len() int {
	if l == nil {
		return 0
	}

	return len(l.ops)
}

// At returns the operation at position i.
func (l *OperationList) At(i int) Operation { return l.ops[i] }

// All returns the operations in declaration order. The slice is a copy.
func (l *OperationList) All() []Operation {
	if l == nil {
		return nil
	}

	out := make([]Operation, len(l.ops))
	copy(out, l.ops)

	return out
}

// Validate resolves every property an operation references against schema and
// returns the first SchemaError found.
func (l *OperationList) Validate(schema *Schema) error {
	if l == nil {
		return nil
	}

	for _, op := range l.ops {
		props, _ := op.refs()
		for _, p := range props {
			if _, err := schema.IndexOf(p); err != nil {
				return err
			}
		}
	}

	return nil
}

// Parameters returns the distinct parameter names read by the list, in first
// use order.
func (l *OperationList) Parameters() []string {
	if l == nil {
		return nil
	}

	seen := make(map[string]struct{})

	var out []string

	for _, op := range l.ops {
		_, params := op.refs()
		for _, p := range params {
			if _, ok := seen[p]; ok {
				continue
			}

			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	return out
}

// ValidateParameters checks that every parameter read by the list is defined
// and has an int64 rounding. The first failure wraps ErrUnknownParameter or
// ErrParameterRange.
func (l *OperationList) ValidateParameters(params Parameters) error {
	for _, name := range l.Parameters() {
		v, ok := params[name]
		if !ok {
			return parameterError(ErrUnknownParameter, name)
		}

		if _, err := roundParameter(name, v); err != nil {
			return err
		}
	}

	return nil
}

// Fold applies every operation to values in place, in list order. A failing
// operation aborts the fold and is reported as a *StepError carrying the
// operation position; Step and Agent are left for the caller to fill in.
func (l *OperationList) Fold(values []int64, env Env) error {
	if l == nil {
		return nil
	}

	for i, op := range l.ops {
		if err := op.apply(values, env); err != nil {
			return &StepError{Step: -1, Agent: -1, Operation: i, Kind: op.Kind(), Err: err}
		}
	}

	return nil
}
