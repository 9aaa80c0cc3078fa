// Package logging provides a minimal logging interface and adapters for agentsim.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that models, the experiment runner and result stores use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - SimLogger with run and experiment helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	sim := agentsim.New(func(o *agentsim.Options) { o.Logger = logger })
package logging
