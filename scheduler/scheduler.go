// Package scheduler schedules parsed shell CommandTrees for parallel
// execution. It builds a dependency graph from static read/write access
// analysis, maintains a frontier of ready-to-run nodes that worker
// goroutines pull from, and expands compound commands (And/Or/If/
// While/Until/For) once their test segment's exit status is known. See
// DESIGN.md for the mapping from each file here to its grounding.
package scheduler

import (
	"context"
	"sync"
	"time"

	"shellsched/scheduler/emit"
	"shellsched/scheduler/store"
)

// Event is the scheduler's observability event, emitted through the
// configured emit.Emitter. It is an alias rather than a fresh type so
// every emit.Emitter implementation works unchanged against a Scheduler.
type Event = emit.Event

// Scheduler is the parallel command scheduler (§2, §3). The zero value
// is not usable; construct one with New.
//
// Scheduler uses a single non-reentrant mutex, not the reentrant mutex
// the design allows (§9 "Reentrant locking"): every method that needs
// the lock is either a public entry point (Submit, Pull, Complete) that
// takes it once, or an internal method suffixed Locked that assumes the
// caller already holds it. Locked methods call each other directly —
// expansion recursing into graph.add is just one Locked method calling
// another — so the lock is acquired exactly once per public call, never
// reacquired. See DESIGN.md for why this reads more idiomatically in Go
// than carrying a recursive mutex.
type Scheduler struct {
	mu   sync.Mutex
	cond *sync.Cond

	frontier  *Frontier
	vars      *VariableTable
	liveNodes map[string]*GraphNode
	metrics   *Metrics // convenience alias of cfg.metrics; nil-safe, see metrics.go

	eof    bool
	closed bool
	step   int

	cfg schedulerConfig
}

// New constructs a Scheduler and calls Init on it.
func New(opts ...Option) (*Scheduler, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	s := &Scheduler{cfg: cfg}
	s.cond = sync.NewCond(&s.mu)
	s.Init()
	return s, nil
}

// Init clears the frontier, graph, and variable table, and resets EOF
// and close state — the scheduler boundary's init() (§6.3). Safe to
// call on a fresh or previously-used Scheduler.
func (s *Scheduler) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frontier = newFrontier()
	s.vars = newVariableTable()
	s.liveNodes = make(map[string]*GraphNode)
	s.metrics = s.cfg.metrics
	s.eof = false
	s.closed = false
	s.step = 0
}

// Submit hands one parsed CommandTree to intake (§4.8, §6.1). Passing a
// KindEof tree signals scheduler EOF instead of adding a graph node.
func (s *Scheduler) Submit(raw *CommandTree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	return s.intakeLocked(raw)
}

// Pull blocks until a dispatchable FrontierNode exists or EOF has been
// synthesized (§4.4). Compound sentinels are stepped over and stay
// parked on the frontier while their children run. Control-flow leaves
// (Continue, Break, and any node the cancellation engine marked
// Cancelled) are reaped inline and never handed back to the caller;
// Pull loops internally until it finds real work or EOF. The EOF
// sentinel is left in place, so every worker that calls Pull receives
// it. The returned FrontierNode's IsEOF reports whether the worker
// should terminate instead of evaluating it.
func (s *Scheduler) Pull(ctx context.Context) (*FrontierNode, error) {
	s.mu.Lock()
	for {
		if s.closed {
			s.mu.Unlock()
			return nil, ErrSchedulerClosed
		}
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return nil, err
		}

		fn := s.frontier.next()
		if fn == nil {
			s.cond.Wait()
			continue
		}
		if fn.IsEOF() {
			s.mu.Unlock()
			return fn, nil
		}
		if frontierTypeFor(fn.Node) != FrontierSimple {
			s.frontier.runNext = fn.next
			continue
		}
		if s.isControlLeafLocked(fn.Node) {
			s.frontier.remove(fn)
			fn.Node.frontier = nil
			s.removeLocked(fn.Node, 0)
			continue
		}

		if fn.Node.Unresolved != 0 {
			s.mu.Unlock()
			return nil, newDependencyInvariantViolation(fn.Node.ID, "dispatched node has Unresolved != 0")
		}

		s.frontier.remove(fn)
		fn.Node.frontier = nil
		fn.Node.Dispatched = true
		fn.Node.DispatchedAt = time.Now()
		s.metrics.setFrontierDepth(s.frontier.length)
		s.mu.Unlock()
		return fn, nil
	}
}

func (s *Scheduler) isControlLeafLocked(node *GraphNode) bool {
	if node.Cancelled() {
		return true
	}
	return node.Command != nil && (node.Command.Kind == KindBreak || node.Command.Kind == KindContinue)
}

// Complete reports fn's evaluator-observed exit status and runs the
// graph-remove path (§4.3, §6.2). Calling Complete on an EOF sentinel is
// a no-op. Completing an already-cancelled node still runs the normal
// remove path (releasing its dependents and its parent's Active count)
// but returns ErrCancelledCompletion so the caller knows status was
// observational only (§7 "CancelledCompletion").
//
// No scheduler lock is held across the trace-store write (§5 "no lock
// is held across evaluator execution" applies equally to any I/O
// Complete itself triggers).
func (s *Scheduler) Complete(ctx context.Context, fn *FrontierNode, status int) error {
	if fn == nil || fn.IsEOF() {
		return nil
	}

	s.mu.Lock()
	node := fn.Node
	cancelled := node.Cancelled()
	dispatchedAt := node.DispatchedAt
	rec := store.Record{
		RunID:      s.cfg.runID,
		Step:       s.nextStep(),
		NodeID:     node.ID,
		Summary:    node.Command.Summary(),
		Access:     toAccessEntries(node.Access),
		Nest:       node.Nest,
		Iteration:  node.Iteration,
		ExitStatus: status,
		Cancelled:  cancelled,
		Timestamp:  time.Now(),
	}
	s.removeLocked(node, status)
	s.cond.Broadcast()
	s.mu.Unlock()

	if !dispatchedAt.IsZero() {
		s.metrics.observeDispatchLatencyMs(node.ID, float64(time.Since(dispatchedAt).Microseconds())/1000)
	}

	if err := s.cfg.trace.AppendRecord(ctx, rec); err != nil {
		s.emit(Event{NodeID: node.ID, Msg: "trace_store_error", Meta: map[string]interface{}{"error": err.Error()}})
	}

	if cancelled {
		return ErrCancelledCompletion
	}
	return nil
}

// Close marks the scheduler closed: Submit and Pull return
// ErrSchedulerClosed, and any worker blocked in Pull is woken.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
	return nil
}

// Run drives the configured worker pool against eval until every
// worker observes EOF or ctx is cancelled (§5 "pool of worker threads
// each loops: pull() -> run evaluator -> call frontier_remove"). Run
// returns once all workers have exited; it does not call Submit or
// close the scheduler itself — callers feed Submit from their own
// parser goroutine, typically before or concurrently with Run.
func (s *Scheduler) Run(ctx context.Context, eval Evaluator) error {
	var wg sync.WaitGroup
	workers := s.cfg.workers
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.runWorker(ctx, eval)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) runWorker(ctx context.Context, eval Evaluator) error {
	for {
		fn, err := s.Pull(ctx)
		if err != nil {
			return err
		}
		if fn.IsEOF() {
			return nil
		}

		s.metrics.incActiveWorkers()
		status, evalErr := eval.Evaluate(ctx, s, fn.Node)
		s.metrics.decActiveWorkers()
		if evalErr != nil {
			// §7 EvaluatorFailure: surfaces as status, never a scheduler error.
			s.emit(Event{NodeID: fn.Node.ID, Msg: "evaluator_error", Meta: map[string]interface{}{"error": evalErr.Error()}})
		}

		if err := s.Complete(ctx, fn, status); err != nil && err != ErrCancelledCompletion {
			return err
		}
	}
}

func (s *Scheduler) nextStep() int {
	s.step++
	return s.step
}

// emit stamps e with the configured run ID and forwards it to the
// configured Emitter. Never blocks scheduling on a slow backend beyond
// what the Emitter itself does — see emit.Emitter's contract.
func (s *Scheduler) emit(e Event) {
	e.RunID = s.cfg.runID
	s.cfg.emitter.Emit(e)
}

func toAccessEntries(set AccessSet) []store.AccessEntry {
	out := make([]store.AccessEntry, len(set))
	for i, a := range set {
		out[i] = store.AccessEntry{Kind: a.Kind.String(), Name: a.Name, Nest: a.TargetNest}
	}
	return out
}

// maybeSynthesizeEOFLocked pushes the EOF sentinel once intake has
// signalled EOF, the frontier has fully drained, and no live graph node
// (including one a worker is still running) remains, per §4.4's "EOF"
// paragraph. Safe to call unconditionally; it is idempotent because
// Pull never removes the EOF sentinel, so the frontier stays non-empty
// once it has been pushed.
func (s *Scheduler) maybeSynthesizeEOFLocked() {
	if s.eof && s.frontier.empty() && len(s.liveNodes) == 0 {
		s.frontier.synthesizeEOF()
		s.cond.Broadcast()
	}
}
