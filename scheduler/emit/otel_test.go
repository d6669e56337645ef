package emit

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	return exporter, func() { _ = tp.Shutdown(context.Background()) }
}

func attributeMap(attrs []attribute.KeyValue) map[string]interface{} {
	m := make(map[string]interface{})
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func TestOTelEmitterEmitCreatesSpanWithStandardAttributes(t *testing.T) {
	exporter, shutdown := newRecordingTracer(t)
	defer shutdown()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{
		RunID:  "run-001",
		Step:   3,
		NodeID: "n5",
		Msg:    "node_queued",
		Meta:   map[string]interface{}{"type": "FrontierIf"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "node_queued" {
		t.Errorf("span name = %q, want node_queued", span.Name)
	}
	attrs := attributeMap(span.Attributes)
	if attrs["shellsched.run_id"] != "run-001" {
		t.Errorf("run_id = %v, want run-001", attrs["shellsched.run_id"])
	}
	if attrs["shellsched.step"] != int64(3) {
		t.Errorf("step = %v, want 3", attrs["shellsched.step"])
	}
	if attrs["shellsched.node_id"] != "n5" {
		t.Errorf("node_id = %v, want n5", attrs["shellsched.node_id"])
	}
	if attrs["shellsched.type"] != "FrontierIf" {
		t.Errorf("type = %v, want FrontierIf", attrs["shellsched.type"])
	}
	if !span.EndTime.After(span.StartTime) {
		t.Error("span was not ended")
	}
}

func TestOTelEmitterErrorEventSetsErrorStatus(t *testing.T) {
	exporter, shutdown := newRecordingTracer(t)
	defer shutdown()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{
		RunID:  "run-001",
		NodeID: "n7",
		Msg:    "evaluator_error",
		Meta:   map[string]interface{}{"error": "exit status 127"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Status.Code != codes.Error {
		t.Errorf("status code = %v, want Error", span.Status.Code)
	}
	if span.Status.Description != "exit status 127" {
		t.Errorf("status description = %q, want exit status 127", span.Status.Description)
	}
	if len(span.Events) == 0 {
		t.Error("expected a recorded error event")
	}
}

func TestOTelEmitterEmitBatchCreatesOneSpanPerEvent(t *testing.T) {
	exporter, shutdown := newRecordingTracer(t)
	defer shutdown()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	events := []Event{
		{RunID: "run-001", Step: 1, NodeID: "n1", Msg: "node_queued"},
		{RunID: "run-001", Step: 2, NodeID: "n2", Msg: "node_queued"},
	}
	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
}

func TestOTelEmitterFlushForcesExport(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{RunID: "run-001", NodeID: "n1", Msg: "node_queued"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := emitter.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(exporter.GetSpans()) != 1 {
		t.Errorf("expected 1 span after flush, got %d", len(exporter.GetSpans()))
	}
}

func TestOTelEmitterMetadataTypesMapToAttributeTypes(t *testing.T) {
	exporter, shutdown := newRecordingTracer(t)
	defer shutdown()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{
		RunID: "run-001",
		Msg:   "test_types",
		Meta: map[string]interface{}{
			"nest":      2,
			"iteration": int64(5),
			"latency":   3.5,
			"cancelled": true,
			"elapsed":   250 * time.Millisecond,
		},
	})

	attrs := attributeMap(exporter.GetSpans()[0].Attributes)
	if attrs["shellsched.nest"] != int64(2) {
		t.Errorf("nest = %v, want 2", attrs["shellsched.nest"])
	}
	if attrs["shellsched.iteration"] != int64(5) {
		t.Errorf("iteration = %v, want 5", attrs["shellsched.iteration"])
	}
	if attrs["shellsched.latency"] != 3.5 {
		t.Errorf("latency = %v, want 3.5", attrs["shellsched.latency"])
	}
	if attrs["shellsched.cancelled"] != true {
		t.Errorf("cancelled = %v, want true", attrs["shellsched.cancelled"])
	}
	if attrs["shellsched.elapsed"] != int64(250) {
		t.Errorf("elapsed = %v, want 250 (ms)", attrs["shellsched.elapsed"])
	}
}

func TestOTelEmitterNilMetaDoesNotPanic(t *testing.T) {
	exporter, shutdown := newRecordingTracer(t)
	defer shutdown()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{RunID: "run-001", NodeID: "n1", Msg: "node_queued", Meta: nil})

	if len(exporter.GetSpans()) != 1 {
		t.Fatalf("expected 1 span, got %d", len(exporter.GetSpans()))
	}
}
