package scheduler

// Snapshot is a diagnostic point-in-time view of scheduler state, in the
// spirit of the teacher's Checkpoint — but purely observational: a
// Snapshot cannot be used to resume a run, only to assert on or log its
// shape (property tests use it for §8 P3's quiescence check).
type Snapshot struct {
	FrontierLength  int
	LiveNodeCount   int
	UnresolvedTotal int
	VariableCount   int
	VersionCount    int
	WaiterCount     int
	EOFSynthesized  bool
	DispatchedCount int
	CancelledCount  int
}

// Snapshot captures the scheduler's current state under the lock. Safe
// to call concurrently with Submit/Pull/Complete.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		FrontierLength: s.frontier.length,
		LiveNodeCount:  len(s.liveNodes),
	}

	for _, node := range s.liveNodes {
		snap.UnresolvedTotal += node.Unresolved
		if node.Dispatched {
			snap.DispatchedCount++
		}
		if node.Cancelled() {
			snap.CancelledCount++
		}
	}

	for fn := s.frontier.head; fn != nil; fn = fn.next {
		if fn.IsEOF() {
			snap.EOFSynthesized = true
		}
	}

	for _, v := range s.vars.vars {
		snap.VariableCount++
		snap.VersionCount += len(v.Versions)
		for _, version := range v.Versions {
			snap.WaiterCount += len(version.Waiters)
		}
	}

	return snap
}

// Quiescent reports whether the snapshot matches §8 P3: after EOF and
// quiescence, the frontier, the graph, and every unresolved counter
// should reach zero/empty (only the synthesized EOF sentinel, which
// Snapshot does not count as live work, may remain unconsumed).
func (snap Snapshot) Quiescent() bool {
	return snap.LiveNodeCount == 0 && snap.UnresolvedTotal == 0 && snap.WaiterCount == 0
}
