package artifact

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentsim/core"
)

// NewStore returns the result store backend named kind ("memory" or "sqlite").
// sqlitePath is only used by the sqlite backend.
func NewStore(ctx context.Context, kind, sqlitePath string) (core.ResultStore, error) {
	switch kind {
	case "", "memory":
		return NewInMemoryStore(), nil
	case "sqlite":
		if sqlitePath == "" {
			sqlitePath = MemoryDSN
		}

		return NewSQLiteStore(ctx, sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes stores holding external resources.
func CloseIfSupported(store core.ResultStore) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}

	return closer.Close()
}
