package core

import "context"

// ResultStore defines persistence for encoded run results (one DataDict per
// run). Implementations should be thread-safe and scope results by
// experiment identifier. Short method names (Save/Get/List/Delete) mirror the
// other store interfaces for consistency.
type ResultStore interface {
	Save(ctx context.Context, experimentID, runID string, data []byte) error
	Get(ctx context.Context, experimentID, runID string) ([]byte, error)
	List(ctx context.Context, experimentID string) ([]string, error)
	Delete(ctx context.Context, experimentID, runID string) error
}
