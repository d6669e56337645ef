package scheduler

import "testing"

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func simpleCmd(args ...string) *CommandTree {
	return &CommandTree{Kind: KindSimple, Args: args}
}

func TestAddLockedNoConflictBothReachFrontierImmediately(t *testing.T) {
	s := newTestScheduler(t)
	s.mu.Lock()
	defer s.mu.Unlock()

	a := newGraphNode(simpleCmd("echo", "a"), AccessSet{{Kind: AccessWrite, Name: "a"}}, 0, 0, FlagFree)
	b := newGraphNode(simpleCmd("echo", "b"), AccessSet{{Kind: AccessWrite, Name: "b"}}, 0, 0, FlagFree)

	s.addLocked(a)
	s.addLocked(b)

	if a.Unresolved != 0 || b.Unresolved != 0 {
		t.Fatalf("disjoint writers should both be immediately dispatchable, got a.Unresolved=%d b.Unresolved=%d", a.Unresolved, b.Unresolved)
	}
	if s.frontier.length != 2 {
		t.Fatalf("frontier length = %d, want 2", s.frontier.length)
	}
}

func TestAddLockedWriteCollisionCreatesDependency(t *testing.T) {
	s := newTestScheduler(t)
	s.mu.Lock()
	defer s.mu.Unlock()

	a := newGraphNode(simpleCmd("sleep", "1"), AccessSet{{Kind: AccessWrite, Name: "a"}}, 0, 0, FlagFree)
	b := newGraphNode(simpleCmd("echo", "done"), AccessSet{{Kind: AccessWrite, Name: "a"}}, 0, 0, FlagFree)

	s.addLocked(a)
	s.addLocked(b)

	if a.Unresolved != 0 {
		t.Fatalf("first writer should be immediately dispatchable, got Unresolved=%d", a.Unresolved)
	}
	if b.Unresolved != 1 {
		t.Fatalf("second writer should wait on the first, got Unresolved=%d", b.Unresolved)
	}
	if len(a.Dependents) != 1 || a.Dependents[0] != b {
		t.Fatalf("a.Dependents should contain b, got %v", a.Dependents)
	}
	if s.frontier.length != 1 {
		t.Fatalf("only a should be on the frontier, got length %d", s.frontier.length)
	}
}

func TestRemoveLockedReleasesDependents(t *testing.T) {
	s := newTestScheduler(t)
	s.mu.Lock()

	a := newGraphNode(simpleCmd("sleep", "1"), AccessSet{{Kind: AccessWrite, Name: "a"}}, 0, 0, FlagFree)
	b := newGraphNode(simpleCmd("echo", "done"), AccessSet{{Kind: AccessWrite, Name: "a"}}, 0, 0, FlagFree)
	s.addLocked(a)
	s.addLocked(b)

	s.frontier.remove(a.frontier)
	a.frontier = nil
	s.removeLocked(a, 0)

	if b.Unresolved != 0 {
		t.Fatalf("removing a should release b, got b.Unresolved=%d", b.Unresolved)
	}
	if s.frontier.length != 1 {
		t.Fatalf("b should now be on the frontier, got length %d", s.frontier.length)
	}
	s.mu.Unlock()
}

func TestDepAddShortCircuitsOnExistingTransitiveEdge(t *testing.T) {
	s := newTestScheduler(t)
	s.mu.Lock()
	defer s.mu.Unlock()

	a := newGraphNode(simpleCmd("x"), AccessSet{{Kind: AccessWrite, Name: "f"}}, 0, 0, FlagFree)
	s.addLocked(a)

	c := newGraphNode(simpleCmd("z"), AccessSet{{Kind: AccessWrite, Name: "f"}, {Kind: AccessWrite, Name: "g"}}, 0, 0, FlagFree)
	s.addLocked(c)
	if c.Unresolved != 1 {
		t.Fatalf("c should depend on a via f, got Unresolved=%d", c.Unresolved)
	}

	b := newGraphNode(simpleCmd("y"), AccessSet{{Kind: AccessWrite, Name: "f"}, {Kind: AccessWrite, Name: "g"}}, 0, 0, FlagFree)
	added := s.depAdd(b, a)
	if added != 1 {
		t.Fatalf("depAdd(b, a) should install exactly one edge, got %d", added)
	}
	if c.hasDependent(b) == false {
		t.Fatalf("expected the edge to land on c (a's dependent) rather than directly on a, got a.Dependents=%v c.Dependents=%v", a.Dependents, c.Dependents)
	}
	if a.hasDependent(b) {
		t.Fatalf("a should not gain a direct edge to b once the transitive path through c already covers it")
	}
}

func TestHasLoopControlConflictForcesWait(t *testing.T) {
	brk := newGraphNode(&CommandTree{Kind: KindBreak}, AccessSet{{Kind: AccessBreak, TargetNest: 1}}, 1, 2, FlagFree)
	cand := newGraphNode(simpleCmd("echo"), AccessSet{}, 1, 2, FlagFree)

	if !hasLoopControlConflict(brk, cand) {
		t.Fatalf("a break at the candidate's own nest/iteration should force it to wait")
	}

	other := newGraphNode(simpleCmd("echo"), AccessSet{}, 1, 1, FlagFree)
	if hasLoopControlConflict(brk, other) {
		t.Fatalf("a break should not conflict with a node from an earlier iteration")
	}
}
