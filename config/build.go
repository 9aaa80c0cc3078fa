package config

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/model"
	"github.com/hupe1980/agentsim/runner"
)

// Builder translates the scenario into a model builder. Schema and operation
// errors surface from the builder's Build as *core.BuildError.
func (s *Scenario) Builder() (*model.Builder, error) {
	names := make([]string, len(s.Properties))
	initial := make(map[string]int64, len(s.Properties))

	for i, p := range s.Properties {
		names[i] = p.Name
		initial[p.Name] = p.Initial
	}

	ops := make([]core.Operation, len(s.Operations))

	for i, oc := range s.Operations {
		op, err := oc.Operation()
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}

		ops[i] = op
	}

	b := model.NewBuilder(s.Name).
		Properties(names...).
		InitialValues(initial).
		Operations(ops...).
		Parameters(s.Parameters).
		Agents(s.Agents)

	for _, o := range s.Overrides {
		b.Override(o.Agent, o.Values)
	}

	return b, nil
}

// Sample expands the experiment sample into parameter combinations. It
// returns nil when the scenario defines no sample.
func (s *Scenario) Sample() ([]core.Parameters, error) {
	if s.Experiment == nil || len(s.Experiment.Sample) == 0 {
		return nil, nil
	}

	params := make(map[string]runner.Param, len(s.Experiment.Sample))

	for name, sc := range s.Experiment.Sample {
		p, err := sc.param()
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", name, err)
		}

		params[name] = p
	}

	return runner.NewSample(params, func(o *runner.SampleOptions) {
		o.N = s.Experiment.N
		o.Zip = s.Experiment.Zip
	})
}

func (c SampleConfig) param() (runner.Param, error) {
	switch {
	case c.Value != nil:
		return runner.Constant(*c.Value), nil
	case c.Values != nil:
		return runner.Values(c.Values), nil
	case len(c.Range) == 2:
		return runner.Range{Min: c.Range[0], Max: c.Range[1]}, nil
	case len(c.IntRange) == 2:
		return runner.IntRange{Min: c.IntRange[0], Max: c.IntRange[1]}, nil
	default:
		return nil, errors.New("invalid sample definition")
	}
}

// ToExperiment builds the runner experiment described by the scenario. A
// scenario without an experiment section yields a single run.
func (s *Scenario) ToExperiment() (runner.Experiment, error) {
	b, err := s.Builder()
	if err != nil {
		return runner.Experiment{}, err
	}

	sample, err := s.Sample()
	if err != nil {
		return runner.Experiment{}, err
	}

	exp := runner.Experiment{
		Name:          s.Name,
		Builder:       b,
		Sample:        sample,
		Iterations:    1,
		Steps:         s.Steps,
		RecordInitial: s.RecordInitial,
	}

	if s.Experiment != nil && s.Experiment.Iterations > 0 {
		exp.Iterations = s.Experiment.Iterations
	}

	return exp, nil
}
