package scheduler

import "testing"

func TestSnapshotReflectsLiveGraphState(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Submit(simpleCmd("echo", "a")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(&CommandTree{Kind: KindSimple, Assigns: []VarAssign{{Name: "x", Value: "1"}}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := s.Snapshot()
	if snap.LiveNodeCount != 2 {
		t.Errorf("LiveNodeCount = %d, want 2", snap.LiveNodeCount)
	}
	if snap.VariableCount != 1 {
		t.Errorf("VariableCount = %d, want 1", snap.VariableCount)
	}
	if snap.VersionCount != 1 {
		t.Errorf("VersionCount = %d, want 1", snap.VersionCount)
	}
}

func TestSnapshotNotQuiescentWithUnresolvedReader(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Submit(&CommandTree{Kind: KindSimple, Assigns: []VarAssign{{Name: "x", Value: "1"}}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(&CommandTree{Kind: KindSimple, Args: []string{"echo", "$x"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := s.Snapshot()
	if snap.Quiescent() {
		t.Fatalf("a reader still waiting on an unpublished version must not be quiescent: %+v", snap)
	}
}

func TestSnapshotQuiescentOnFreshScheduler(t *testing.T) {
	s := newTestScheduler(t)
	snap := s.Snapshot()
	if !snap.Quiescent() {
		t.Fatalf("an empty scheduler should be quiescent, got %+v", snap)
	}
}

func TestSnapshotCountsDispatchedAndCancelled(t *testing.T) {
	s := newTestScheduler(t)
	s.mu.Lock()
	a := newGraphNode(simpleCmd("echo", "a"), AccessSet{}, 0, 0, FlagFree)
	s.addLocked(a)
	a.Dispatched = true

	b := newGraphNode(simpleCmd("echo", "b"), AccessSet{}, 0, 0, FlagFree)
	s.addLocked(b)
	b.markCancelled()
	s.mu.Unlock()

	snap := s.Snapshot()
	if snap.DispatchedCount != 1 {
		t.Errorf("DispatchedCount = %d, want 1", snap.DispatchedCount)
	}
	if snap.CancelledCount != 1 {
		t.Errorf("CancelledCount = %d, want 1", snap.CancelledCount)
	}
}

func TestSnapshotDetectsSynthesizedEOF(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Submit(&CommandTree{Kind: KindEof}); err != nil {
		t.Fatalf("Submit(Eof): %v", err)
	}

	snap := s.Snapshot()
	if !snap.EOFSynthesized {
		t.Fatalf("expected EOFSynthesized once an EOF sentinel sits on the frontier, got %+v", snap)
	}
}
