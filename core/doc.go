// Package core provides the foundational domain types shared by every layer
// of agentsim. It defines:
//
//   - Schema (the interned, frozen property set of one agent species)
//   - Operation (a closed set of deterministic state transitions) and
//     OperationList (their ordered, shared sequence)
//   - Parameters (read-only run parameters)
//   - The error taxonomy (SchemaError, BuildError, StepError and sentinels)
//   - ResultStore, the pluggable persistence interface for run results
//
// Agents, factories, models and the result collector live in their own
// packages and depend on core; core depends on nothing but the standard
// library.
package core
