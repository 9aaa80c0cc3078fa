package artifact

import (
	"context"
	"slices"
	"sync"
)

// InMemoryStore is a trivial in‑process ResultStore implementation useful
// for tests, examples and single‑process experiments. It keeps all encoded
// results in a nested map guarded by an RWMutex. Data is copied on save /
// retrieval to avoid accidental external mutation of internal buffers.
//
// Layout: experimentID -> runID -> encoded DataDict
//
// This implementation does not enforce retention limits or size quotas. For
// results that must survive the process, use the sqlite store.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[string]map[string][]byte // experimentID -> runID -> data
}

// NewInMemoryStore returns an empty in‑memory result store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{results: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the result bytes for the given experiment and run.
// The input slice is copied before storage.
func (a *InMemoryStore) Save(_ context.Context, experimentID, runID string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.results[experimentID]; !exists {
		a.results[experimentID] = make(map[string][]byte)
	}

	a.results[experimentID][runID] = slices.Clone(data)

	return nil
}

// Get returns a copy of the stored result bytes or ErrNotFound.
func (a *InMemoryStore) Get(_ context.Context, experimentID, runID string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, ok := a.results[experimentID]
	if !ok {
		return nil, ErrNotFound
	}

	data, ok := m[runID]
	if !ok {
		return nil, ErrNotFound
	}

	return slices.Clone(data), nil
}

// List returns the run ids stored for the experiment, sorted. The slice is
// a snapshot and safe for caller mutation.
func (a *InMemoryStore) List(_ context.Context, experimentID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, ok := a.results[experimentID]
	if !ok {
		return []string{}, nil
	}

	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids, nil
}

// Delete removes the result if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(_ context.Context, experimentID, runID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.results[experimentID]
	if !ok {
		return ErrNotFound
	}

	if _, ok := m[runID]; !ok {
		return ErrNotFound
	}

	delete(m, runID)

	return nil
}
