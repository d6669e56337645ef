package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.999999999Z07:00", s)
}

// SQLiteTraceStore is a SQLite-backed Store.
//
// It records dispatch traces in a single-file database. Designed for:
//   - Development and debugging with zero setup
//   - Post-mortem inspection of a completed run
//   - Feeding the replay harness from a past run
//
// SQLiteTraceStore uses WAL mode so a long-running scheduler can keep
// appending while a separate process reads the trace.
//
// Schema:
//   - run_records: one row per dispatched-and-completed GraphNode
type SQLiteTraceStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteTraceStore creates a new SQLite-backed trace store.
//
// The path parameter specifies the database file location:
//   - "./trace.db" - file in current directory
//   - "/tmp/shellsched.db" - absolute path
//   - ":memory:" - in-memory database (data lost on close)
//
// The store automatically creates the database file and schema if they
// don't exist, and enables WAL mode for concurrent reads.
func NewSQLiteTraceStore(path string) (*SQLiteTraceStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite supports one writer at a time
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &SQLiteTraceStore{db: db, path: path}
	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteTraceStore) createTables(ctx context.Context) error {
	recordsTable := `
		CREATE TABLE IF NOT EXISTS run_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			summary TEXT NOT NULL,
			access TEXT NOT NULL,
			nest INTEGER NOT NULL,
			iteration INTEGER NOT NULL,
			exit_status INTEGER NOT NULL,
			cancelled INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			UNIQUE(run_id, step)
		)
	`
	if _, err := s.db.ExecContext(ctx, recordsTable); err != nil {
		return fmt.Errorf("failed to create run_records table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_run_records_run_id ON run_records(run_id)"); err != nil {
		return fmt.Errorf("failed to create idx_run_records_run_id: %w", err)
	}

	return nil
}

// AppendRecord persists one completed dispatch.
//
// Thread-safe for concurrent writes from worker goroutines.
func (s *SQLiteTraceStore) AppendRecord(ctx context.Context, rec Record) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	accessJSON, err := json.Marshal(rec.Access)
	if err != nil {
		return fmt.Errorf("failed to marshal access set: %w", err)
	}

	query := `
		INSERT INTO run_records
		(run_id, step, node_id, summary, access, nest, iteration, exit_status, cancelled, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO UPDATE SET
			node_id = excluded.node_id,
			summary = excluded.summary,
			access = excluded.access,
			nest = excluded.nest,
			iteration = excluded.iteration,
			exit_status = excluded.exit_status,
			cancelled = excluded.cancelled,
			timestamp = excluded.timestamp
	`

	cancelled := 0
	if rec.Cancelled {
		cancelled = 1
	}

	_, err = s.db.ExecContext(ctx, query,
		rec.RunID, rec.Step, rec.NodeID, rec.Summary, string(accessJSON),
		rec.Nest, rec.Iteration, rec.ExitStatus, cancelled,
		rec.Timestamp.Format("2006-01-02T15:04:05.999999999Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	return nil
}

// Records returns all records for runID in step order.
func (s *SQLiteTraceStore) Records(ctx context.Context, runID string) ([]Record, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `
		SELECT step, node_id, summary, access, nest, iteration, exit_status, cancelled, timestamp
		FROM run_records
		WHERE run_id = ?
		ORDER BY step ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		recs       []Record
		accessJSON string
		timestamp  string
		cancelled  int
	)
	for rows.Next() {
		var rec Record
		rec.RunID = runID

		if err := rows.Scan(&rec.Step, &rec.NodeID, &rec.Summary, &accessJSON,
			&rec.Nest, &rec.Iteration, &rec.ExitStatus, &cancelled, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}

		if err := json.Unmarshal([]byte(accessJSON), &rec.Access); err != nil {
			return nil, fmt.Errorf("failed to unmarshal access set: %w", err)
		}
		rec.Cancelled = cancelled != 0

		ts, err := parseTimestamp(timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		rec.Timestamp = ts

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	if len(recs) == 0 {
		return nil, ErrNotFound
	}

	return recs, nil
}

// Close closes the database connection. Calling Close multiple times is
// safe; subsequent calls are no-ops.
func (s *SQLiteTraceStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
