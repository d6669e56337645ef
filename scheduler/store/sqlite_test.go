package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSQLiteTraceStoreAppendAndRecords(t *testing.T) {
	s, err := NewSQLiteTraceStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteTraceStore: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	rec := Record{
		RunID:      "run-1",
		Step:       1,
		NodeID:     "n1",
		Summary:    "Simple(echo hi)",
		Access:     []AccessEntry{{Kind: "Write", Name: "x"}},
		ExitStatus: 0,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.AppendRecord(ctx, rec); err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}

	got, err := s.Records(ctx, "run-1")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].NodeID != "n1" || len(got[0].Access) != 1 || got[0].Access[0].Name != "x" {
		t.Fatalf("unexpected record: %+v", got[0])
	}
}

func TestSQLiteTraceStoreNotFound(t *testing.T) {
	s, err := NewSQLiteTraceStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteTraceStore: %v", err)
	}
	defer func() { _ = s.Close() }()

	_, err = s.Records(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Records(missing) = %v, want ErrNotFound", err)
	}
}

func TestSQLiteTraceStoreUpsertOnConflict(t *testing.T) {
	s, err := NewSQLiteTraceStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteTraceStore: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	base := Record{RunID: "r", Step: 1, NodeID: "n1", ExitStatus: 0, Timestamp: time.Now().UTC()}
	_ = s.AppendRecord(ctx, base)

	updated := base
	updated.ExitStatus = 1
	updated.Cancelled = true
	if err := s.AppendRecord(ctx, updated); err != nil {
		t.Fatalf("AppendRecord (update): %v", err)
	}

	got, err := s.Records(ctx, "r")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected upsert to keep one row per (run_id, step), got %d", len(got))
	}
	if got[0].ExitStatus != 1 || !got[0].Cancelled {
		t.Fatalf("AppendRecord did not update existing row: %+v", got[0])
	}
}
