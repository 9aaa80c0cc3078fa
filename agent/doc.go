// Package agent provides the simulation entity and the factory that stamps it
// out.
//
// A Factory is built once per species through a FactoryBuilder, which
// validates the schema, the initial values and the operation list before any
// agent exists. Agents produced by one factory share the schema and the
// OperationList by pointer and own an independent, densely packed property
// array.
//
// Example:
//
//	schema := core.MustSchema("energy")
//	factory, err := agent.NewFactoryBuilder().
//	    Schema(schema).
//	    InitialValues(map[string]int64{"energy": 10}).
//	    Operations(core.NewOperationList(core.AddToProperty("energy", 1))).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	a := factory.CreateAgent()
//	a, err = a.Step(nil) // energy == 11
package agent
