package runner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/datadict"
	"github.com/hupe1980/agentsim/internal/util"
	"github.com/hupe1980/agentsim/logging"
	"github.com/hupe1980/agentsim/model"
)

var (
	// ErrInvalidExperiment is returned for an experiment that cannot run.
	ErrInvalidExperiment = errors.New("invalid experiment")
	// ErrExperimentNotFound is returned by Stop for an unknown id.
	ErrExperimentNotFound = errors.New("experiment not found")
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns limits how many models run at the same time.
	MaxConcurrentRuns int
	// Store receives the Arrow encoded DataDict of every run when set.
	Store core.ResultStore
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// Experiment describes a batch of independent runs: every parameter
// combination of Sample is run Iterations times, each run on its own Model
// built from Builder.
type Experiment struct {
	// ID identifies the experiment for Stop and the result store. A uuid is
	// generated when empty.
	ID string
	// Name defaults to the builder's model name.
	Name string
	// Builder is the model template. It is cloned per run and never mutated.
	Builder *model.Builder
	// Sample lists parameter combinations overlaid on the builder's
	// parameters. An empty sample runs the builder parameters once.
	Sample []core.Parameters
	// Iterations is the number of replicates per combination (default 1).
	Iterations int
	// Steps is passed to Model.Run.
	Steps int
	// RecordInitial records step 0 in every run.
	RecordInitial bool
}

// RunResult is the outcome of one run inside an experiment.
type RunResult struct {
	RunID      string
	SampleID   int
	Iteration  int
	Parameters core.Parameters
	Data       *datadict.DataDict
}

// Result collects every run of an experiment in sample, then iteration order.
type Result struct {
	ExperimentID string
	Name         string
	// SampleSize is the number of parameter combinations; each ran Iterations times.
	SampleSize int
	Iterations int
	Runs       []RunResult
	// Constants holds parameters equal across all runs; Varying names the rest.
	Constants core.Parameters
	Varying   []string
	StartedAt time.Time
	Duration  time.Duration
}

// Run returns the run with the given sample id and iteration.
func (r *Result) Run(sampleID, iteration int) (RunResult, bool) {
	for _, run := range r.Runs {
		if run.SampleID == sampleID && run.Iteration == iteration {
			return run, true
		}
	}

	return RunResult{}, false
}

// experimentLogger is implemented by loggers with a dedicated experiment
// summary (logging.SimLogger).
type experimentLogger interface {
	LogExperiment(experimentID string, runs, failed int, dur time.Duration, err error)
}

// Runner executes experiments. Models are independent, so runs proceed
// concurrently up to MaxConcurrentRuns; the first failure cancels the rest.
// Public methods are safe for concurrent use.
type Runner struct {
	maxConcurrentRuns int
	store             core.ResultStore
	logger            logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 4,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxConcurrentRuns < 1 {
		opts.MaxConcurrentRuns = 1
	}

	return &Runner{
		maxConcurrentRuns: opts.MaxConcurrentRuns,
		store:             opts.Store,
		logger:            logging.OrNoOp(opts.Logger),
		activeRuns:        make(map[string]context.CancelFunc),
	}
}

// Store returns the configured result store or nil.
func (r *Runner) Store() core.ResultStore { return r.store }

// Run executes every run of exp and blocks until all finished. Either all
// runs succeed and a Result is returned, or the first error is.
func (r *Runner) Run(ctx context.Context, exp Experiment) (*Result, error) {
	if exp.Builder == nil {
		return nil, fmt.Errorf("%w: missing model builder", ErrInvalidExperiment)
	}

	if exp.Steps < 0 {
		return nil, fmt.Errorf("%w: negative step count %d", ErrInvalidExperiment, exp.Steps)
	}

	if exp.Iterations < 1 {
		exp.Iterations = 1
	}

	if exp.ID == "" {
		exp.ID = util.NewID()
	}

	if exp.Name == "" {
		exp.Name = exp.Builder.Name()
	}

	sample := exp.Sample
	if len(sample) == 0 {
		sample = []core.Parameters{{}}
	}

	// Schema and operations are frozen once and shared read-only by every run.
	factory, err := exp.Builder.BuildFactory()
	if err != nil {
		return nil, err
	}

	base := exp.Builder.Clone().Factory(factory)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if _, exists := r.activeRuns[exp.ID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: experiment %s already running", ErrInvalidExperiment, exp.ID)
	}

	r.activeRuns[exp.ID] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.activeRuns, exp.ID)
		r.mu.Unlock()
	}()

	start := time.Now()
	runs := make([]RunResult, len(sample)*exp.Iterations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrentRuns)

	for s, params := range sample {
		for it := range exp.Iterations {
			idx := s*exp.Iterations + it

			g.Go(func() error {
				run, err := r.runOne(gctx, exp, base, params, s, it)
				if err != nil {
					return err
				}

				runs[idx] = run

				return nil
			})
		}
	}

	err = g.Wait()

	failed := 0
	for _, run := range runs {
		if run.Data == nil {
			failed++
		}
	}

	r.logExperiment(exp.ID, len(runs), failed, time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", exp.ID, err)
	}

	all := make([]core.Parameters, len(runs))
	for i, run := range runs {
		all[i] = run.Parameters
	}

	constants, varying := SplitParameters(all)

	return &Result{
		ExperimentID: exp.ID,
		Name:         exp.Name,
		SampleSize:   len(sample),
		Iterations:   exp.Iterations,
		Runs:         runs,
		Constants:    constants,
		Varying:      varying,
		StartedAt:    start.UTC(),
		Duration:     time.Since(start),
	}, nil
}

func (r *Runner) runOne(
	ctx context.Context,
	exp Experiment,
	base *model.Builder,
	params core.Parameters,
	sampleID, iteration int,
) (RunResult, error) {
	runID := util.NewID()

	m, err := base.Clone().Parameters(params).Build(func(o *model.Options) {
		o.RunID = runID
		o.RecordInitial = exp.RecordInitial
		o.Logger = r.runLogger(exp.Name, runID)
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("sample %d iteration %d: %w", sampleID, iteration, err)
	}

	dd, err := m.Run(ctx, exp.Steps)
	if err != nil {
		return RunResult{}, fmt.Errorf("sample %d iteration %d: %w", sampleID, iteration, err)
	}

	if r.store != nil {
		if err := r.save(ctx, exp.ID, runID, dd); err != nil {
			return RunResult{}, err
		}
	}

	return RunResult{
		RunID:      runID,
		SampleID:   sampleID,
		Iteration:  iteration,
		Parameters: m.Parameters(),
		Data:       dd,
	}, nil
}

func (r *Runner) save(ctx context.Context, experimentID, runID string, dd *datadict.DataDict) error {
	start := time.Now()

	data, err := dd.MarshalBinary()
	if err == nil {
		err = r.store.Save(ctx, experimentID, runID, data)
	}

	if sl, ok := r.logger.(*logging.SimLogger); ok {
		sl.LogStoreCall("save", runID, len(data), time.Since(start), err)
	}

	if err != nil {
		return fmt.Errorf("failed to store run %s: %w", runID, err)
	}

	return nil
}

// Load decodes a stored run of an experiment from the configured store.
func (r *Runner) Load(ctx context.Context, experimentID, runID string) (*datadict.DataDict, error) {
	if r.store == nil {
		return nil, errors.New("runner has no result store")
	}

	data, err := r.store.Get(ctx, experimentID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	return datadict.Decode(data)
}

// Stop cancels a running experiment by ID.
func (r *Runner) Stop(experimentID string) error {
	r.mu.RLock()
	cancel, exists := r.activeRuns[experimentID]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrExperimentNotFound, experimentID)
	}

	cancel()

	return nil
}

// Active returns the ids of the experiments currently running, sorted.
func (r *Runner) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.activeRuns))
}

func (r *Runner) runLogger(name, runID string) logging.Logger {
	if sl, ok := r.logger.(*logging.SimLogger); ok {
		return sl.WithRun(name, runID)
	}

	return r.logger
}

func (r *Runner) logExperiment(id string, runs, failed int, dur time.Duration, err error) {
	if el, ok := r.logger.(experimentLogger); ok {
		el.LogExperiment(id, runs, failed, dur, err)
		return
	}

	if err != nil {
		r.logger.Error("Experiment failed", "experiment_id", id, "error", err)
		return
	}

	r.logger.Info("Experiment completed", "experiment_id", id, "run_count", runs, "duration", dur)
}
