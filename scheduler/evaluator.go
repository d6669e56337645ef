package scheduler

import "context"

// Evaluator runs a single leaf command and reports its exit status
// (§6.2). The scheduler has no process model of its own — forking,
// redirection, and builtin semantics are entirely the Evaluator's
// concern — but it does own the variable-versioning protocol an
// Evaluator must follow for `$var` reads and writes to serialize
// correctly against the graph:
//
//   - Before executing, for every variable reference in the command's
//     arguments, call ReadLatest(name). If the returned *VarVersion has
//     no value yet, call QueueReader(node, name, version) — this bumps
//     the node's Unresolved count and keeps it off the frontier until
//     the writer publishes.
//   - After executing a variable assignment, call Publish(version, value)
//     with the version CreateVersion returned when the write was first
//     scheduled.
//
// A Evaluator implementation is expected to run commands concurrently
// across the worker pool driving it; Evaluate must be safe for
// concurrent use.
//
// s is the Scheduler driving this Evaluate call, passed so an Evaluator
// can call ReadLatest/QueueReader/Publish directly against node.Versions
// (populated by intake for every variable this node assigns) for any
// variable reference its static analysis at intake time could not see —
// e.g. one produced by command substitution. Most Evaluators will not
// need it: the analyzer already captures literal `$name` references in
// a Simple command's arguments as AccessRead entries (see
// AnalyzeAccess), which alone is enough to order a read after its
// nearest preceding write, and by the time such a node is dispatched
// the writer it depends on has already published.
type Evaluator interface {
	// Evaluate runs cmd and returns its exit status. ctx is cancelled if
	// the driving worker's Pull loop is asked to shut down mid-execution.
	Evaluate(ctx context.Context, s *Scheduler, node *GraphNode) (status int, err error)
}
