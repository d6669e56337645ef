// Package store provides trace-recording persistence for the scheduler.
//
// The scheduler core has no on-disk format of its own (see the scheduler
// boundary in the design doc): a Store is an optional diagnostic sidecar
// that records, per run, the sequence of dispatched commands and their
// access sets and exit statuses. It backs replay-based property tests
// and post-mortem debugging of a real run; a caller that never
// configures one pays nothing (see NullStore).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run ID has no recorded trace.
var ErrNotFound = errors.New("store: run not found")

// AccessEntry is the serializable form of scheduler.Access, kept free of
// any dependency on the scheduler package so store has no import cycle.
type AccessEntry struct {
	Kind string `json:"kind"` // "Read", "Write", "Continue", "Break"
	Name string `json:"name,omitempty"`
	Nest int    `json:"nest,omitempty"`
}

// Record is one dispatched-and-completed GraphNode, as observed by the
// scheduler's worker loop.
type Record struct {
	RunID      string        `json:"run_id"`
	Step       int           `json:"step"`
	NodeID     string        `json:"node_id"`
	Summary    string        `json:"summary"` // short rendering of the CommandTree, e.g. "Simple(echo hi)"
	Access     []AccessEntry `json:"access"`
	Nest       int           `json:"nest"`
	Iteration  int           `json:"iteration"`
	ExitStatus int           `json:"exit_status"`
	Cancelled  bool          `json:"cancelled"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Store persists dispatch records for later replay or inspection.
//
// Implementations must be safe for concurrent use: AppendRecord is called
// from worker goroutines as nodes complete.
type Store interface {
	// AppendRecord persists one completed dispatch.
	AppendRecord(ctx context.Context, rec Record) error

	// Records returns all records for runID in step order.
	// Returns ErrNotFound if no records exist for runID.
	Records(ctx context.Context, runID string) ([]Record, error)

	// Close releases any resources held by the store.
	Close() error
}

// NullStore discards every record. It is the default when no store is
// configured, so recording has zero cost unless explicitly enabled.
type NullStore struct{}

// NewNullStore creates a store that discards all records.
func NewNullStore() *NullStore { return &NullStore{} }

// AppendRecord is a no-op.
func (NullStore) AppendRecord(context.Context, Record) error { return nil }

// Records always reports ErrNotFound: nothing was ever kept.
func (NullStore) Records(context.Context, string) ([]Record, error) {
	return nil, ErrNotFound
}

// Close is a no-op.
func (NullStore) Close() error { return nil }
