package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

const schemaV1 = `
CREATE TABLE IF NOT EXISTS results (
    experiment_id TEXT NOT NULL,
    run_id TEXT NOT NULL,
    data BLOB NOT NULL,
    size INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (experiment_id, run_id)
);
CREATE INDEX IF NOT EXISTS idx_results_created ON results(experiment_id, created_at);
`

// SQLiteStore implements core.ResultStore on a SQLite database so results
// survive the process. One row per run holds the encoded DataDict.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path and
// initializes the schema. Pass MemoryDSN for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create result directory: %w", err)
		}

		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer; it also keeps :memory: alive.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string { return s.path }

// Save stores (or overwrites) the result bytes for the given experiment and run.
func (s *SQLiteStore) Save(ctx context.Context, experimentID, runID string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (experiment_id, run_id, data, size, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(experiment_id, run_id) DO UPDATE SET
			data = excluded.data,
			size = excluded.size,
			created_at = excluded.created_at`,
		experimentID, runID, data, len(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save result %s/%s: %w", experimentID, runID, err)
	}

	return nil
}

// Get returns the stored result bytes or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, experimentID, runID string) ([]byte, error) {
	var data []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM results WHERE experiment_id = ? AND run_id = ?`,
		experimentID, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load result %s/%s: %w", experimentID, runID, err)
	}

	return data, nil
}

// List returns the run ids stored for the experiment, sorted.
func (s *SQLiteStore) List(ctx context.Context, experimentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM results WHERE experiment_id = ? ORDER BY run_id`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	ids := []string{}

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Delete removes the result if present or returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, experimentID, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM results WHERE experiment_id = ? AND run_id = ?`, experimentID, runID)
	if err != nil {
		return fmt.Errorf("failed to delete result %s/%s: %w", experimentID, runID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete result %s/%s: %w", experimentID, runID, err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
