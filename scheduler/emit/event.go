package emit

// Event represents an observability event emitted during scheduler execution.
//
// The scheduler emits these events:
//   - "node_queued" when a GraphNode is parked at the frontier
//   - "analyzer_error" when a compound's segment fails access analysis
//   - "evaluator_error" when the Evaluator returns an error
//   - "trace_store_error" when a completion record cannot be stored
//
// Events are emitted to an Emitter which can:
//   - Log to stdout/stderr
//   - Send to OpenTelemetry
//   - Buffer in memory for test assertions
type Event struct {
	// RunID identifies the intake stream (one parsed script or interactive
	// session) that produced this event.
	RunID string

	// Step is the sequential dispatch step number (1-indexed).
	// Zero for scheduler-level events (EOF, invariant violation).
	Step int

	// NodeID identifies the GraphNode or FrontierNode that emitted this
	// event. Empty string for scheduler-level events.
	NodeID string

	// Msg is a short event name, e.g. "node_queued", "evaluator_error".
	Msg string

	// Meta contains additional structured data specific to this event.
	// Keys the scheduler sets:
	//   - "type": the FrontierNodeType of a queued node
	//   - "error": error details
	Meta map[string]interface{}
}
