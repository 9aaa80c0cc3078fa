// Package artifact contains concrete implementations of core.ResultStore.
//
// The canonical ResultStore interface lives in the core package to avoid
// dependency cycles and keep domain contracts central. InMemoryStore and
// SQLiteStore (modernc.org/sqlite, no cgo) are storage backends that can be
// swapped without touching calling code. Results are opaque byte
// payloads; the runner stores DataDicts encoded as Arrow IPC streams.
//
// NewStore selects a backend by name for configuration driven callers.
package artifact
