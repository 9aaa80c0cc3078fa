// Package agentsim provides a high-level façade over the simulation core and
// its service abstractions (experiment runner, result stores and logging)
// enabling rapid construction of agent-based models. Most applications
// interact with this package by:
//  1. Creating an AgentSim via New() (optionally overriding the in‑memory result store)
//  2. Describing a species and population with model.NewBuilder
//  3. Running it once (Run) or over a parameter sample (RunExperiment)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; long running studies typically supply a SQLite result store and a
// structured logger.
package agentsim

import (
	"context"

	"github.com/hupe1980/agentsim/artifact"
	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/datadict"
	"github.com/hupe1980/agentsim/logging"
	"github.com/hupe1980/agentsim/model"
	"github.com/hupe1980/agentsim/runner"
)

// Options configures the AgentSim instance.
type Options struct {
	// MaxConcurrentRuns limits the number of models that execute
	// simultaneously within one experiment.
	MaxConcurrentRuns int

	// ResultStore receives every run's DataDict (defaults to in-memory).
	ResultStore core.ResultStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentSim is the high-level façade aggregating the runner and services.
type AgentSim struct {
	opts   Options
	runner *runner.Runner
}

// New creates a new AgentSim instance with optional overrides.
func New(optFns ...func(o *Options)) *AgentSim {
	opts := Options{
		MaxConcurrentRuns: 4,
		ResultStore:       artifact.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(func(o *runner.Options) {
		o.MaxConcurrentRuns = opts.MaxConcurrentRuns
		o.Store = opts.ResultStore
		o.Logger = opts.Logger
	})

	return &AgentSim{opts: opts, runner: r}
}

// Runner exposes the underlying experiment runner (e.g. for Stop).
func (s *AgentSim) Runner() *runner.Runner { return s.runner }

// ResultStore returns the configured result store.
func (s *AgentSim) ResultStore() core.ResultStore { return s.opts.ResultStore }

// Run builds a single model from b and advances it steps times.
func (s *AgentSim) Run(ctx context.Context, b *model.Builder, steps int) (*datadict.DataDict, error) {
	res, err := s.runner.Run(ctx, runner.Experiment{Builder: b, Steps: steps})
	if err != nil {
		return nil, err
	}

	return res.Runs[0].Data, nil
}

// RunExperiment executes exp with the configured concurrency and store.
func (s *AgentSim) RunExperiment(ctx context.Context, exp runner.Experiment) (*runner.Result, error) {
	return s.runner.Run(ctx, exp)
}

// Load decodes a stored run from the result store.
func (s *AgentSim) Load(ctx context.Context, experimentID, runID string) (*datadict.DataDict, error) {
	return s.runner.Load(ctx, experimentID, runID)
}

// Close releases resources held by the result store.
func (s *AgentSim) Close() error { return artifact.CloseIfSupported(s.opts.ResultStore) }
