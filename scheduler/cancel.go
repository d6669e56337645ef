package scheduler

// cancelLocked implements break/continue pruning (§4.6). It runs when a
// Break or Continue node completes, just before that node's own
// finishNodeLocked call. It scans every still-live graph node for a
// match against the nest/iteration rule in loopControlFires, cancels
// the matches, then either starts the loop's next iteration (continue)
// or ends the loop outright (break).
func (s *Scheduler) cancelLocked(node *GraphNode, _ int) {
	entries := loopControlEntries(node.Access)
	if len(entries) == 0 {
		return
	}
	ctrl := entries[0]

	pruned := 0
	for _, cand := range s.liveNodes {
		if cand == node || cand.Cancelled() {
			continue
		}
		if loopControlFires(ctrl, node.Iteration, cand.Nest, cand.Iteration) {
			s.cancelNodeLocked(cand)
			pruned++
		}
	}
	s.metrics.incCancellations(pruned)

	target := s.findTargetLoopLocked(node.Parent, ctrl.TargetNest)
	if target == nil {
		// Malformed tree (break/continue outside any loop at the claimed
		// nest level) — nothing sensible to advance.
		return
	}

	switch ctrl.Kind {
	case AccessBreak:
		target.Type = FrontierSimple
	case AccessContinue:
		s.advanceLoopLocked(target)
	}
}

// findTargetLoopLocked walks the compound ancestor chain starting at
// start looking for the loop FrontierNode whose body runs at nest
// targetNest (§3 "levels" semantics: target_nest identifies the body
// nest of the loop n levels out).
func (s *Scheduler) findTargetLoopLocked(start *FrontierNode, targetNest int) *FrontierNode {
	for fn := start; fn != nil; fn = fn.Node.Parent {
		if fn.Type.isLoop() && fn.Node.Nest+1 == targetNest {
			return fn
		}
	}
	return nil
}

// advanceLoopLocked moves a While/Until/For compound on to its next
// iteration, the same step onTestTailCompleteLocked/onBodyTailCompleteLocked
// would have taken had the iteration run to completion instead of being
// cut short by continue.
func (s *Scheduler) advanceLoopLocked(fn *FrontierNode) {
	switch fn.Type {
	case FrontierFor:
		s.forAdvanceLocked(fn)
	case FrontierWhile, FrontierUntil:
		fn.Iteration++
		s.spawnSegment(fn, fn.Node.Command.Test, fn.Node.Nest, fn.Iteration, FlagTestTail)
	}
}

// cancelNodeLocked marks node cancelled. If no worker has been handed
// this node yet, it is unwound out of the graph immediately: its
// dependents are released exactly as on normal completion, and its
// parent's Active count drops right away. If a worker is already
// running it, unwinding is deferred to that worker's own Complete call
// (§5 "any already-running command is allowed to finish") — finishNodeLocked
// checks Cancelled() and skips the TestTail/BodyTail expander dispatch
// for it, but still does the bookkeeping a normal completion would.
// A compound sentinel that still has live children is deferred the same
// way: it is unwound when its last child finishes.
func (s *Scheduler) cancelNodeLocked(node *GraphNode) {
	node.markCancelled()

	if node.Dispatched || (node.frontier != nil && node.frontier.Active > 0) {
		return
	}

	delete(s.liveNodes, node.ID)

	if node.frontier != nil {
		s.frontier.remove(node.frontier)
		node.frontier = nil
	}

	for _, d := range node.Dependents {
		d.Unresolved--
		if d.Unresolved == 0 {
			s.frontierAddLocked(d)
		}
	}
	node.Dependents = nil

	if parent := node.Parent; parent != nil {
		parent.Active--
	}
}
