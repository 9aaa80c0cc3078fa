package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentsim/artifact"
	"github.com/hupe1980/agentsim/config"
	"github.com/hupe1980/agentsim/internal/util"
	"github.com/hupe1980/agentsim/runner"
)

type runSummary struct {
	RunID       string             `json:"run_id"`
	SampleID    int                `json:"sample_id"`
	Iteration   int                `json:"iteration"`
	Parameters  map[string]string  `json:"parameters"`
	Steps       int                `json:"steps"`
	Fingerprint string             `json:"fingerprint"`
}

type experimentSummary struct {
	ExperimentID string             `json:"experiment_id"`
	Name         string             `json:"name"`
	Constants    map[string]string  `json:"constants"`
	Varying      []string           `json:"varying"`
	Duration     string             `json:"duration"`
	Output       string             `json:"output,omitempty"`
	Runs         []runSummary       `json:"runs"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario file",
		Long: `Run every model of a scenario and report one line per run.

With --out the results are written to one Arrow IPC stream. A scenario
without an experiment section writes the DataDict of its single run; an
experiment writes every run combined, indexed by sample_id and iteration
ahead of step and agent.

Examples:
  agentsim run -c energy.yaml
  agentsim run -c sweep.yaml --out results.arrow
  agentsim run -c sweep.yaml --store sqlite --db results.db --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			out, _ := cmd.Flags().GetString("out")
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := loadScenario(path)
			if err != nil {
				return err
			}

			if v, _ := cmd.Flags().GetString("store"); v != "" {
				s.Runtime.Store = v
			}

			if v, _ := cmd.Flags().GetString("db"); v != "" {
				s.Runtime.SQLitePath = v
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runScenario(ctx, cmd, s, out, jsonOut)
		},
	}

	cmd.Flags().StringP("config", "c", "", "Scenario file")
	cmd.Flags().StringP("out", "o", "", "Write results as Arrow IPC to this path")
	cmd.Flags().String("store", "", "Result store backend (memory, sqlite)")
	cmd.Flags().String("db", "", "SQLite database path for --store sqlite")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runScenario(ctx context.Context, cmd *cobra.Command, s *config.Scenario, out string, jsonOut bool) error {
	logger := s.Logger().WithComponent("cli")

	store, err := artifact.NewStore(ctx, s.Runtime.Store, s.Runtime.SQLitePath)
	if err != nil {
		return err
	}

	defer func() {
		if err := artifact.CloseIfSupported(store); err != nil {
			logger.Warn("Failed to close result store", "error", err)
		}
	}()

	exp, err := s.ToExperiment()
	if err != nil {
		return err
	}

	r := runner.New(func(o *runner.Options) {
		o.MaxConcurrentRuns = s.Runtime.MaxConcurrentRuns
		o.Store = store
		o.Logger = logger
	})

	res, err := r.Run(ctx, exp)
	if err != nil {
		return err
	}

	agentSteps := 0
	for _, run := range res.Runs {
		agentSteps += run.Data.Agents() * run.Data.Len()
	}

	logger.LogPerformance("experiment", res.Duration, map[string]any{
		"runs":        len(res.Runs),
		"agent_steps": agentSteps,
	})

	summary := experimentSummary{
		ExperimentID: res.ExperimentID,
		Name:         res.Name,
		Constants:    res.Constants.Strings(),
		Varying:      res.Varying,
		Duration:     res.Duration.String(),
		Runs:         make([]runSummary, len(res.Runs)),
	}

	for i, run := range res.Runs {
		summary.Runs[i] = runSummary{
			RunID:       run.RunID,
			SampleID:    run.SampleID,
			Iteration:   run.Iteration,
			Parameters:  run.Parameters.Strings(),
			Steps:       run.Data.Len(),
			Fingerprint: fmt.Sprintf("%016x", run.Data.Fingerprint()),
		}
	}

	if out != "" {
		stop := logger.StartTimer("write_arrow")

		var enc arrowEncoder = res
		if s.Experiment == nil {
			enc = res.Runs[0].Data
		}

		if err := writeArrow(out, enc); err != nil {
			return err
		}

		stop()

		summary.Output = out
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(summary)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "experiment %s (%s): %d runs in %s\n", summary.ExperimentID, summary.Name, len(summary.Runs), summary.Duration)

	for _, rs := range summary.Runs {
		fmt.Fprintf(w, "  sample %d iteration %d run %s steps=%d fingerprint=%s\n", rs.SampleID, rs.Iteration, util.ShortID(rs.RunID), rs.Steps, rs.Fingerprint)
	}

	if summary.Output != "" {
		fmt.Fprintf(w, "results written to %s\n", summary.Output)
	}

	return nil
}

// arrowEncoder is satisfied by *datadict.DataDict and *runner.Result.
type arrowEncoder interface {
	WriteIPC(w io.Writer) error
}

func writeArrow(path string, enc arrowEncoder) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err := enc.WriteIPC(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return f.Close()
}
