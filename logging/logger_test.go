package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*SimLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf

	return NewLogger(cfg), buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))

		out = append(out, m)
	}

	return out
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"debug": LogLevelDebug, "INFO": LogLevelInfo, "": LogLevelInfo,
		"warning": LogLevelWarn, "error": LogLevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestSimLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	l.Error("shown too")

	entries := lines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, float64(1), entries[0]["k"])
}

func TestSimLogger_ContextAttributes(t *testing.T) {
	base, buf := newBufferLogger(LogLevelDebug)

	l := base.WithComponent("runner").WithRun("energy", "run-1").WithContext("experiment_id", "exp")
	l.Info("hello")
	base.Info("plain")

	entries := lines(t, buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "runner", entries[0]["component"])
	assert.Equal(t, "energy", entries[0]["model"])
	assert.Equal(t, "run-1", entries[0]["run_id"])
	assert.Equal(t, "exp", entries[0]["experiment_id"])

	assert.NotContains(t, entries[1], "component")
	assert.NotContains(t, entries[1], "run_id")
}

func TestSimLogger_DomainHelpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.LogRun("energy", 3, 5, time.Millisecond, nil)
	l.LogRun("energy", 3, 5, time.Millisecond, errors.New("boom"))
	l.LogExperiment("exp", 4, 0, time.Second, nil)
	l.LogStoreCall("save", "run-1", 128, time.Millisecond, nil)
	l.LogPerformance("run", time.Second, map[string]any{"agent_steps": 15})
	l.StartTimer("write")()
	l.ErrorWithStack(errors.New("bad"), "failed")

	entries := lines(t, buf)
	require.Len(t, entries, 7)

	assert.Equal(t, "Model run completed", entries[0]["msg"])
	assert.Equal(t, float64(3), entries[0]["agent_count"])
	assert.Equal(t, true, entries[0]["success"])

	assert.Equal(t, "Model run failed", entries[1]["msg"])
	assert.Equal(t, slog.LevelError.String(), entries[1]["level"])
	assert.Equal(t, "boom", entries[1]["error"])

	assert.Equal(t, "Experiment completed", entries[2]["msg"])
	assert.Equal(t, float64(128), entries[3]["bytes"])
	assert.Equal(t, float64(15), entries[4]["metric_agent_steps"])
	assert.Equal(t, "write", entries[5]["operation"])
	assert.Contains(t, entries[6]["stack_trace"], "goroutine")
}

func TestNoOpAndAdapter(t *testing.T) {
	assert.Equal(t, NoOpLogger{}, OrNoOp(nil))

	var sim *SimLogger
	assert.Equal(t, NoOpLogger{}, OrNoOp(sim))

	var adapter *SlogAdapter
	assert.Equal(t, NoOpLogger{}, OrNoOp(adapter))
	assert.NotPanics(t, func() { OrNoOp(sim).Info("dropped") })

	buf := &bytes.Buffer{}
	var l Logger = NewSlogAdapter(slog.New(slog.NewJSONHandler(buf, nil)))
	assert.Equal(t, l, OrNoOp(l))

	l.Info("adapted", "k", "v")
	assert.Contains(t, buf.String(), `"k":"v"`)

	NoOpLogger{}.Error("ignored")
	assert.NotNil(t, NewSlogLogger(LogLevelInfo, "text", false))
	assert.NotNil(t, NewDefaultSlogLogger())
}
