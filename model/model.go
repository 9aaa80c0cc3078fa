package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentsim/agent"
	"github.com/hupe1980/agentsim/core"
	"github.com/hupe1980/agentsim/datadict"
	"github.com/hupe1980/agentsim/logging"
)

// ErrInvalidSteps is returned by Run for a negative step count.
var ErrInvalidSteps = errors.New("invalid step count")

// runLogger is implemented by loggers offering a dedicated run summary
// (logging.SimLogger); other loggers receive a plain Info/Error line.
type runLogger interface {
	LogRun(model string, agents, steps int, dur time.Duration, err error)
}

// Model owns the full agent population of one run plus its name and
// parameters. All agents share one schema and OperationList. A Model is
// single-use: Run consumes it.
type Model struct {
	name          string
	runID         string
	params        core.Parameters
	factory       *agent.Factory
	agents        []agent.Agent
	recordInitial bool
	consumed      bool
	logger        logging.Logger
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// RunID returns the identifier of this run.
func (m *Model) RunID() string { return m.runID }

// Parameters returns a copy of the run parameters.
func (m *Model) Parameters() core.Parameters { return m.params.Clone() }

// Schema returns the property schema shared by every agent.
func (m *Model) Schema() *core.Schema { return m.factory.Schema() }

// Operations returns the operation list shared by every agent.
func (m *Model) Operations() *core.OperationList { return m.factory.Operations() }

// Len returns the population size. It is zero once the model was consumed.
func (m *Model) Len() int { return len(m.agents) }

// Agent returns the agent at index i. Stepping never mutates an agent in
// place, so the returned value stays valid after the model runs.
func (m *Model) Agent(i int) agent.Agent { return m.agents[i] }

// Consumed reports whether Run has been called.
func (m *Model) Consumed() bool { return m.consumed }

// Run advances the population steps times. After every step each agent is
// replaced by agent.Step() and a snapshot row-group is recorded at the step
// index (1-based; step 0 holds the initial population when RecordInitial is
// set). The Model is consumed: its agents are released and a second Run fails
// with core.ErrModelConsumed.
//
// ctx is checked between steps so an external orchestrator can cancel a run;
// a cancelled run returns the context error and no DataDict. An operation
// failure aborts the run with a *core.StepError naming step and agent.
func (m *Model) Run(ctx context.Context, steps int) (*datadict.DataDict, error) {
	if m.consumed {
		return nil, core.ErrModelConsumed
	}

	if steps < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSteps, steps)
	}

	m.consumed = true
	agents := m.agents
	m.agents = nil

	start := time.Now()

	dd, err := m.run(ctx, agents, steps)

	m.logRun(len(agents), steps, time.Since(start), err)

	if err != nil {
		return nil, err
	}

	return dd, nil
}

func (m *Model) run(ctx context.Context, agents []agent.Agent, steps int) (*datadict.DataDict, error) {
	capacity := steps
	if m.recordInitial {
		capacity++
	}

	dd := datadict.New(m.factory.Schema(), len(agents), func(o *datadict.Options) {
		o.Info = datadict.Info{
			ModelName:      m.name,
			RunID:          m.runID,
			ScheduledSteps: steps,
			StartedAt:      time.Now().UTC(),
		}
		o.Parameters = m.params
		o.Capacity = capacity
	})

	scratch := make([][]int64, len(agents))
	record := func(step int) error {
		for i, a := range agents {
			scratch[i] = a.AppendValues(scratch[i][:0])
		}

		return dd.Record(step, scratch)
	}

	if m.recordInitial {
		if err := record(0); err != nil {
			return nil, err
		}
	}

	for s := 1; s <= steps; s++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s cancelled before step %d: %w", m.runID, s, err)
		}

		for i := range agents {
			next, err := agents[i].Step(m.params)
			if err != nil {
				var se *core.StepError
				if errors.As(err, &se) {
					se.Step, se.Agent = s, i
				}

				return nil, fmt.Errorf("run %s: %w", m.runID, err)
			}

			agents[i] = next
		}

		if err := record(s); err != nil {
			return nil, err
		}
	}

	dd.Seal(true)

	return dd, nil
}

func (m *Model) logRun(agents, steps int, dur time.Duration, err error) {
	if rl, ok := m.logger.(runLogger); ok {
		rl.LogRun(m.name, agents, steps, dur, err)
		return
	}

	if err != nil {
		m.logger.Error("Model run failed", "model", m.name, "run_id", m.runID, "error", err)
		return
	}

	m.logger.Info("Model run completed", "model", m.name, "run_id", m.runID,
		"agent_count", agents, "step_count", steps, "duration", dur)
}
