package scheduler

import "errors"

// SchedulerError is the scheduler's structured error type, in the
// teacher's EngineError{Message, Code} style, extended with the node
// the error concerns.
type SchedulerError struct {
	Message string
	Code    string
	NodeID  string
}

func (e *SchedulerError) Error() string {
	if e.NodeID != "" {
		return e.Code + ": " + e.Message + " (node " + e.NodeID + ")"
	}
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// ErrCancelledCompletion is returned (not propagated as a failure) when
// Complete observes a frontier node already flagged Cancelled — the
// normal remove path still runs; this error only tells the caller the
// exit status it supplied was discarded (§7 CancelledCompletion).
var ErrCancelledCompletion = errors.New("scheduler: completion of a cancelled node")

// ErrNoProgress names the state in which the frontier is empty, no
// worker is inflight, and EOF has not been observed — a scheduler bug,
// never a shell error (§7, adapted from the teacher's deadlock
// detector). No code in this package detects that state or returns it.
var ErrNoProgress = errors.New("scheduler: no progress possible (frontier empty, no inflight work, no EOF)")

// ErrSchedulerClosed is returned by Submit and Pull once Close has been
// called.
var ErrSchedulerClosed = errors.New("scheduler: closed")

// ErrSyncBuiltin is returned by Submit when the submitted command is a
// cd/exit builtin that must run synchronously outside the graph (§4.8,
// §6.3). The caller is expected to run it through the Evaluator itself
// and then continue submitting.
var ErrSyncBuiltin = errors.New("scheduler: command must run synchronously, bypassing the graph")

// newDependencyInvariantViolation builds the fatal §7
// DependencyInvariantViolation: an assertion that a dispatched node's
// unresolved count was zero did not hold.
func newDependencyInvariantViolation(nodeID, invariant string) *SchedulerError {
	return &SchedulerError{
		Message: "invariant violated: " + invariant,
		Code:    "DEPENDENCY_INVARIANT_VIOLATION",
		NodeID:  nodeID,
	}
}

// newAnalyzerError wraps a malformed-CommandTree failure from AnalyzeAccess.
func newAnalyzerError(message string) *SchedulerError {
	return &SchedulerError{Message: message, Code: "ANALYZER_MALFORMED"}
}
