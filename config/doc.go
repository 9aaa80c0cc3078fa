// Package config loads scenario files.
//
// A scenario is a YAML document describing one species (properties with
// their initial values and the ordered operation list), the population size,
// run parameters, the number of steps and optionally an experiment over a
// parameter sample. Runtime and logging sections configure concurrency, the
// result store and the logger. Environment variables prefixed AGENTSIM_
// override the runtime and logging sections.
//
// Scenario.ToExperiment translates a validated scenario into a
// runner.Experiment ready to execute.
package config
