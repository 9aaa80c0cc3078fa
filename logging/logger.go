// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer SimLogger with contextual
// helpers (component, model, run) and domain specific logging helpers for
// model runs, experiments and result stores.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name ("debug", "info", "warn",
// "error") into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger defines the minimal logging interface for agentsim. Arguments after
// msg are slog style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// SimLogger wraps slog.Logger adding contextual cloning helpers and domain
// convenience methods. It is cheap to copy via the With* methods.
type SimLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	model     string
	runID     string
}

// LoggerConfig configures construction of a SimLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration writing to stderr.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr, CustomAttrs: map[string]any{}}
}

// NewLogger builds a SimLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *SimLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	ctx := make(map[string]any, len(cfg.CustomAttrs))
	for k, v := range cfg.CustomAttrs {
		ctx[k] = v
	}

	return &SimLogger{logger: slog.New(handler), level: cfg.Level, context: ctx, component: cfg.Component}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SimLogger) clone() *SimLogger {
	nl := *l
	nl.context = make(map[string]any, len(l.context))

	for k, v := range l.context {
		nl.context[k] = v
	}

	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *SimLogger) WithContext(key string, value any) *SimLogger {
	nl := l.clone()
	nl.context[key] = value

	return nl
}

// WithComponent sets the logical component (model, runner, store, cli).
func (l *SimLogger) WithComponent(c string) *SimLogger {
	nl := l.clone()
	nl.component = c

	return nl
}

// WithRun attaches model name and run identifier.
func (l *SimLogger) WithRun(model, runID string) *SimLogger {
	nl := l.clone()
	nl.model = model
	nl.runID = runID

	return nl
}

func (l *SimLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+3)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}

	if l.model != "" {
		attrs = append(attrs, slog.String("model", l.model))
	}

	if l.runID != "" {
		attrs = append(attrs, slog.String("run_id", l.runID))
	}

	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}

	return attrs
}

func (l *SimLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}

	attrs := l.buildAttrs()

	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	r.Add(args...)

	_ = l.logger.Handler().Handle(context.Background(), r)
}

// Debug logs at debug level.
func (l *SimLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *SimLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *SimLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *SimLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// ErrorWithStack logs an error plus a runtime stack snapshot.
func (l *SimLogger) ErrorWithStack(err error, msg string, args ...any) {
	if l.level > LogLevelError {
		return
	}

	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)

	args = append(args,
		slog.String("error", err.Error()),
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("stack_trace", string(stack[:n])),
	)
	l.log(slog.LevelError, true, msg, args...)
}

// LogRun records the outcome of one model run.
func (l *SimLogger) LogRun(model string, agents, steps int, dur time.Duration, err error) {
	args := []any{
		slog.String("model_name", model),
		slog.Int("agent_count", agents),
		slog.Int("step_count", steps),
		slog.Duration("duration", dur),
		slog.Bool("success", err == nil),
	}

	if err != nil {
		args = append(args, slog.String("error", err.Error()))
		l.log(slog.LevelError, l.level <= LogLevelError, "Model run failed", args...)

		return
	}

	l.log(slog.LevelInfo, l.level <= LogLevelInfo, "Model run completed", args...)
}

// LogExperiment records aggregate experiment metrics.
func (l *SimLogger) LogExperiment(experimentID string, runs, failed int, dur time.Duration, err error) {
	args := []any{
		slog.String("experiment_id", experimentID),
		slog.Int("run_count", runs),
		slog.Int("failed_runs", failed),
		slog.Duration("duration", dur),
		slog.Bool("success", err == nil),
	}

	if err != nil {
		args = append(args, slog.String("error", err.Error()))
		l.log(slog.LevelError, l.level <= LogLevelError, "Experiment failed", args...)

		return
	}

	l.log(slog.LevelInfo, l.level <= LogLevelInfo, "Experiment completed", args...)
}

// LogStoreCall records latency and outcome of a result store operation.
func (l *SimLogger) LogStoreCall(op, runID string, bytes int, dur time.Duration, err error) {
	args := []any{
		slog.String("store_op", op),
		slog.String("result_run_id", runID),
		slog.Int("bytes", bytes),
		slog.Duration("duration", dur),
	}

	if err != nil {
		args = append(args, slog.String("error", err.Error()))
		l.log(slog.LevelWarn, l.level <= LogLevelWarn, "Result store call failed", args...)

		return
	}

	l.log(slog.LevelDebug, l.level <= LogLevelDebug, "Result store call completed", args...)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *SimLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Info("Operation completed", "operation", op, "duration", time.Since(start)) }
}

// LogPerformance logs arbitrary performance metrics for an operation.
func (l *SimLogger) LogPerformance(op string, dur time.Duration, metrics map[string]any) {
	args := []any{slog.String("operation", op), slog.Duration("duration", dur)}
	for k, v := range metrics {
		args = append(args, slog.Any("metric_"+k, v))
	}

	l.log(slog.LevelInfo, l.level <= LogLevelInfo, "Performance metrics", args...)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// NewSlogLogger creates a new SimLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *SimLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level

	if format != "" {
		cfg.Format = format
	}

	cfg.AddSource = addSource

	return NewLogger(cfg)
}

// OrNoOp returns l, or a NoOpLogger when l is nil. Typed nil pointers of the
// loggers in this package count as nil.
func OrNoOp(l Logger) Logger {
	switch v := l.(type) {
	case nil:
		return NoOpLogger{}
	case *SimLogger:
		if v == nil {
			return NoOpLogger{}
		}
	case *SlogAdapter:
		if v == nil || v.Logger == nil {
			return NoOpLogger{}
		}
	}

	return l
}
