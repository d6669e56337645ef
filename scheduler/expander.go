package scheduler

// expandInitialLocked spawns a freshly frontier-parked compound's test
// segment (And/Or/If/While/Until) or performs the first iteration bind
// (For), per the per-type table in §4.5. Must be called with the
// scheduler mutex held, immediately after the compound's FrontierNode
// is pushed.
//
// The compound's own Access, computed once by AnalyzeAccess over its
// full test+body subtree, is left untouched for the compound's whole
// lifetime. This is deliberately conservative: a downstream command
// that conflicts with anything the loop or branch might ever touch
// waits for the compound as a whole rather than being re-pointed at
// whichever body node turns out to matter. It costs some parallelism
// the spec's "dependent recheck" step would have recovered, but it
// keeps expansion from having to unwind and replay dependency edges
// mid-flight, and the ordering guarantee (§1 happens-before) is
// unaffected either way.
func (s *Scheduler) expandInitialLocked(fn *FrontierNode) {
	cmd := fn.Node.Command
	nest := fn.Node.Nest

	switch fn.Type {
	case FrontierAnd, FrontierOr:
		fn.pending.right = cmd.Right
		s.spawnSegment(fn, cmd.Left, nest, fn.Iteration, FlagTestTail)

	case FrontierIf:
		fn.pending.then = cmd.Then
		fn.pending.els = cmd.Else
		s.spawnSegment(fn, cmd.Test, nest, fn.Iteration, FlagTestTail)

	case FrontierWhile, FrontierUntil:
		fn.pending.loopBody = cmd.Body
		s.spawnSegment(fn, cmd.Test, nest, fn.Iteration, FlagTestTail)

	case FrontierFor:
		fn.pending.loopVar = cmd.LoopVar
		fn.pending.loopArgs = cmd.LoopArgs
		fn.pending.loopArgIndex = 0
		fn.pending.loopBody = cmd.Body
		s.forAdvanceLocked(fn)
	}
}

// onTestTailCompleteLocked runs once a compound's test segment's last
// command finishes, with fn.Status already set to its exit status
// (§4.5). It decides whether to spawn a body segment or reduce the
// compound straight to FrontierSimple.
func (s *Scheduler) onTestTailCompleteLocked(fn *FrontierNode) {
	switch fn.Type {
	case FrontierAnd:
		s.branchOrReduceLocked(fn, fn.Status == 0, fn.pending.right)
	case FrontierOr:
		s.branchOrReduceLocked(fn, fn.Status != 0, fn.pending.right)
	case FrontierIf:
		if fn.Status == 0 {
			s.branchOrReduceLocked(fn, true, fn.pending.then)
		} else {
			s.branchOrReduceLocked(fn, true, fn.pending.els)
		}
	case FrontierWhile:
		s.loopTestResultLocked(fn, fn.Status == 0)
	case FrontierUntil:
		s.loopTestResultLocked(fn, fn.Status != 0)
	}
}

// onBodyTailCompleteLocked runs once a compound's body segment's last
// command finishes. And/Or/If are already FrontierSimple by this point
// (branchOrReduceLocked sets it when it spawns the body); only the
// looping types still have work to do.
func (s *Scheduler) onBodyTailCompleteLocked(fn *FrontierNode) {
	switch fn.Type {
	case FrontierWhile, FrontierUntil:
		fn.Iteration++
		s.spawnSegment(fn, fn.Node.Command.Test, fn.Node.Nest, fn.Iteration, FlagTestTail)
	case FrontierFor:
		s.forAdvanceLocked(fn)
	}
}

// branchOrReduceLocked either spawns branch as the compound's body
// segment (leaving fn a live compound until the body finishes) or, if
// run is false or branch is nil, reduces fn to FrontierSimple
// immediately — the short-circuit/no-else case, whose result is
// whatever the test segment already produced.
func (s *Scheduler) branchOrReduceLocked(fn *FrontierNode, run bool, branch *CommandTree) {
	if !run || branch == nil {
		fn.Type = FrontierSimple
		return
	}
	s.spawnSegment(fn, branch, fn.Node.Nest, fn.Iteration, FlagBodyTail)
	fn.Type = FrontierSimple
}

// loopTestResultLocked either spawns the next body iteration or ends
// the loop, reducing it to FrontierSimple so its own completion can
// propagate once Active drains to zero.
func (s *Scheduler) loopTestResultLocked(fn *FrontierNode, keepGoing bool) {
	if !keepGoing {
		fn.Type = FrontierSimple
		return
	}
	fn.Iteration++
	s.spawnSegment(fn, fn.pending.loopBody, fn.Node.Nest+1, fn.Iteration, FlagBodyTail)
}

// forAdvanceLocked binds the next loop variable value and spawns one
// body iteration, or reduces the compound to FrontierSimple once the
// argument list is exhausted (§4.5 For row). The bind is a synchronous
// variable write: for's argument values come from the word list already
// evaluated at parse time, not from a command whose completion the
// scheduler must wait on.
func (s *Scheduler) forAdvanceLocked(fn *FrontierNode) {
	if fn.pending.loopArgIndex >= len(fn.pending.loopArgs) {
		fn.Type = FrontierSimple
		return
	}
	value := fn.pending.loopArgs[fn.pending.loopArgIndex]
	fn.pending.loopArgIndex++

	version := s.createVersionLocked(fn.pending.loopVar)
	s.publishLocked(version, value)

	fn.Iteration++
	s.spawnSegment(fn, fn.pending.loopBody, fn.Node.Nest+1, fn.Iteration, FlagBodyTail)
}

// spawnSegment flattens cmd's top-level Semi chain into its component
// commands, analyzes and graph-adds each one under parent, and flags
// the last one with tailFlag so its completion drives the expander
// (§4.5, §4.8 Semi flattening). Analyzer failures are reported as a
// scheduler error event and otherwise swallowed — a malformed body is
// a parse-time defect the scheduler cannot recover from mid-run.
func (s *Scheduler) spawnSegment(parent *FrontierNode, cmd *CommandTree, nest, iteration int, tailFlag NodeFlags) []*GraphNode {
	cmds := flattenSemi(cmd)
	spawned := make([]*GraphNode, 0, len(cmds))
	for i, c := range cmds {
		access, err := AnalyzeAccess(c, nest)
		if err != nil {
			s.emit(Event{Step: s.nextStep(), NodeID: parent.Node.ID, Msg: "analyzer_error", Meta: map[string]interface{}{"error": err.Error()}})
			return spawned
		}
		flags := NodeFlags(0)
		if i == len(cmds)-1 {
			flags |= tailFlag
		}
		node := newGraphNode(c, access, nest, iteration, flags)
		node.Parent = parent
		s.addLocked(node)
		spawned = append(spawned, node)
	}
	return spawned
}

// flattenSemi unrolls a left-leaning Semi chain into its commands in
// left-to-right order (§4.8).
func flattenSemi(cmd *CommandTree) []*CommandTree {
	if cmd == nil {
		return nil
	}
	if cmd.Kind == KindSemi {
		return append(flattenSemi(cmd.Left), flattenSemi(cmd.Right)...)
	}
	return []*CommandTree{cmd}
}
