package emit

import (
	"context"
	"testing"
)

func TestBufferedEmitterGetHistory(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "run-1", Step: 1, NodeID: "n1", Msg: "node_dispatch"})
	b.Emit(Event{RunID: "run-1", Step: 2, NodeID: "n2", Msg: "node_complete"})
	b.Emit(Event{RunID: "run-2", Step: 1, NodeID: "n3", Msg: "node_dispatch"})

	got := b.GetHistory("run-1")
	if len(got) != 2 {
		t.Fatalf("GetHistory(run-1) = %d events, want 2", len(got))
	}
	if got[0].Msg != "node_dispatch" || got[1].Msg != "node_complete" {
		t.Fatalf("unexpected order: %+v", got)
	}

	if len(b.GetHistory("run-2")) != 1 {
		t.Fatalf("GetHistory(run-2) should be isolated from run-1")
	}
	if len(b.GetHistory("missing")) != 0 {
		t.Fatalf("GetHistory(missing) should return empty slice, not nil panic")
	}
}

func TestBufferedEmitterFilter(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "r", Step: 1, NodeID: "a", Msg: "node_dispatch"})
	b.Emit(Event{RunID: "r", Step: 2, NodeID: "b", Msg: "conflict_detected"})
	b.Emit(Event{RunID: "r", Step: 3, NodeID: "a", Msg: "node_complete"})

	filtered := b.GetHistoryWithFilter("r", HistoryFilter{NodeID: "a"})
	if len(filtered) != 2 {
		t.Fatalf("filter by NodeID = %d, want 2", len(filtered))
	}

	minStep := 2
	filtered = b.GetHistoryWithFilter("r", HistoryFilter{MinStep: &minStep})
	if len(filtered) != 2 {
		t.Fatalf("filter by MinStep = %d, want 2", len(filtered))
	}
}

func TestBufferedEmitterClear(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "r1", Msg: "node_dispatch"})
	b.Emit(Event{RunID: "r2", Msg: "node_dispatch"})

	b.Clear("r1")
	if len(b.GetHistory("r1")) != 0 {
		t.Fatalf("Clear(r1) left events behind")
	}
	if len(b.GetHistory("r2")) != 1 {
		t.Fatalf("Clear(r1) should not affect r2")
	}

	b.Clear("")
	if len(b.GetHistory("r2")) != 0 {
		t.Fatalf("Clear(\"\") should wipe all runs")
	}
}

func TestBufferedEmitterEmitBatch(t *testing.T) {
	b := NewBufferedEmitter()
	events := []Event{
		{RunID: "r", Step: 1, Msg: "node_dispatch"},
		{RunID: "r", Step: 2, Msg: "node_complete"},
	}
	if err := b.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch returned error: %v", err)
	}
	if len(b.GetHistory("r")) != 2 {
		t.Fatalf("EmitBatch did not record both events")
	}
}
