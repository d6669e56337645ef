package scheduler

import (
	"context"
	"testing"
)

// driveToQuiescence pulls and completes every dispatchable node until EOF,
// using the Simple command's first argument as its exit status
// convention ("false" -> 1, anything else -> 0). It returns, in dispatch
// order, the Summary() of every node Pull handed out.
func driveToQuiescence(t *testing.T, s *Scheduler) []string {
	t.Helper()
	ctx := context.Background()
	var ran []string
	for {
		fn, err := s.Pull(ctx)
		if err != nil {
			t.Fatalf("Pull: %v", err)
		}
		if fn.IsEOF() {
			return ran
		}
		status := 0
		if cmd := fn.Node.Command; cmd != nil && len(cmd.Args) > 0 && cmd.Args[0] == "false" {
			status = 1
		}
		ran = append(ran, fn.Node.Command.Summary())
		if err := s.Complete(ctx, fn, status); err != nil && err != ErrCancelledCompletion {
			t.Fatalf("Complete: %v", err)
		}
	}
}

func TestExpandIfTakesThenBranchOnSuccess(t *testing.T) {
	s := newTestScheduler(t)
	cmd := &CommandTree{
		Kind: KindIf,
		Test: simpleCmd("true"),
		Then: simpleCmd("then-branch"),
		Else: simpleCmd("else-branch"),
	}
	if err := s.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(&CommandTree{Kind: KindEof}); err != nil {
		t.Fatalf("Submit(Eof): %v", err)
	}

	ran := driveToQuiescence(t, s)
	if len(ran) != 2 || ran[0] != "Simple(true)" || ran[1] != "Simple(then-branch)" {
		t.Fatalf("expected [true, then-branch], got %v", ran)
	}
}

func TestExpandIfTakesElseBranchOnFailure(t *testing.T) {
	s := newTestScheduler(t)
	cmd := &CommandTree{
		Kind: KindIf,
		Test: simpleCmd("false"),
		Then: simpleCmd("then-branch"),
		Else: simpleCmd("else-branch"),
	}
	if err := s.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(&CommandTree{Kind: KindEof}); err != nil {
		t.Fatalf("Submit(Eof): %v", err)
	}

	ran := driveToQuiescence(t, s)
	if len(ran) != 2 || ran[1] != "Simple(else-branch)" {
		t.Fatalf("expected the else branch to run, got %v", ran)
	}
}

func TestExpandAndShortCircuitsOnFailure(t *testing.T) {
	s := newTestScheduler(t)
	cmd := &CommandTree{Kind: KindAnd, Left: simpleCmd("false"), Right: simpleCmd("never")}
	if err := s.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(&CommandTree{Kind: KindEof}); err != nil {
		t.Fatalf("Submit(Eof): %v", err)
	}

	ran := driveToQuiescence(t, s)
	if len(ran) != 1 || ran[0] != "Simple(false)" {
		t.Fatalf("&& should not run its right side once the left fails, got %v", ran)
	}
}

func TestExpandOrRunsRightOnlyOnFailure(t *testing.T) {
	s := newTestScheduler(t)
	cmd := &CommandTree{Kind: KindOr, Left: simpleCmd("false"), Right: simpleCmd("fallback")}
	if err := s.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(&CommandTree{Kind: KindEof}); err != nil {
		t.Fatalf("Submit(Eof): %v", err)
	}

	ran := driveToQuiescence(t, s)
	if len(ran) != 2 || ran[1] != "Simple(fallback)" {
		t.Fatalf("|| should run its right side after the left fails, got %v", ran)
	}
}

func TestExpandForRunsOneIterationPerArgument(t *testing.T) {
	s := newTestScheduler(t)
	cmd := &CommandTree{
		Kind:     KindFor,
		LoopVar:  "i",
		LoopArgs: []string{"1", "2", "3"},
		Body:     simpleCmd("echo", "$i"),
	}
	if err := s.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(&CommandTree{Kind: KindEof}); err != nil {
		t.Fatalf("Submit(Eof): %v", err)
	}

	ran := driveToQuiescence(t, s)
	if len(ran) != 3 {
		t.Fatalf("expected 3 iterations, got %v", ran)
	}
}

func TestExpandWhileStopsOnFailingTest(t *testing.T) {
	s := newTestScheduler(t)
	// A body that always succeeds and a test that fails immediately
	// exercises the zero-iteration boundary case.
	cmd := &CommandTree{Kind: KindWhile, Test: simpleCmd("false"), Body: simpleCmd("body")}
	if err := s.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(&CommandTree{Kind: KindEof}); err != nil {
		t.Fatalf("Submit(Eof): %v", err)
	}

	ran := driveToQuiescence(t, s)
	if len(ran) != 1 || ran[0] != "Simple(false)" {
		t.Fatalf("a while whose test fails immediately should run zero body iterations, got %v", ran)
	}
}

func TestFlattenSemi(t *testing.T) {
	tree := &CommandTree{
		Kind: KindSemi,
		Left: &CommandTree{Kind: KindSemi, Left: simpleCmd("a"), Right: simpleCmd("b")},
		Right: simpleCmd("c"),
	}
	cmds := flattenSemi(tree)
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	for i, want := range []string{"a", "b", "c"} {
		if cmds[i].Args[0] != want {
			t.Errorf("cmds[%d] = %s, want %s", i, cmds[i].Args[0], want)
		}
	}
}
