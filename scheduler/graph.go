package scheduler

// addLocked implements graph add (§4.2). Must be called with the
// scheduler mutex held — expansion paths call it recursively, which is
// why the scheduler uses a single non-reentrant mutex held only by
// methods suffixed Locked, all entered from a handful of lock/unlock
// boundaries in scheduler.go (§9 "Reentrant locking"). A node is never
// made to wait on a compound that encloses it, and it is ordered behind
// conflicting nodes still parked at the frontier as well as those a
// worker is already running.
func (s *Scheduler) addLocked(node *GraphNode) {
	s.liveNodes[node.ID] = node

	if assigns := assignsOf(node.Command); len(assigns) > 0 {
		node.Versions = make(map[string]*VarVersion, len(assigns))
		for _, a := range assigns {
			node.Versions[a.Name] = s.createVersionLocked(a.Name)
		}
	}

	if node.Parent != nil {
		node.Parent.Active++
	}

	for fn := s.frontier.head; fn != nil; fn = fn.next {
		if fn.IsEOF() || fn.Node == node {
			continue
		}
		enclosing := false
		for p := node.Parent; p != nil && !enclosing; p = p.Node.Parent {
			enclosing = p == fn
		}
		if enclosing {
			continue
		}
		added := s.depAdd(node, fn.Node)
		node.Unresolved += added
		if fn.Type.isLoop() && added > 0 {
			break
		}
	}

	for _, live := range s.liveNodes {
		if live.Dispatched && live != node {
			node.Unresolved += s.depAdd(node, live)
		}
	}

	if node.Unresolved == 0 {
		s.frontierAddLocked(node)
	}
}

// depAdd is the recursive dependency-edge installer (§4.2). It returns
// the number of new edges installed between new_node and node or its
// transitive dependents: 0 if new_node is already a dependent, 1 for a
// direct edge to node, or the sum over node's dependents, which can
// exceed 1 when several branches each take an edge.
// An edge is only ever installed for a WriteCollision: a pure
// ConcurrentRead conflict is recorded in the metrics but never orders
// the two readers against each other.
func (s *Scheduler) depAdd(newNode, node *GraphNode) int {
	c := s.combinedConflict(newNode, node)
	if c == NoClash {
		return 0
	}
	s.metrics.incConflict(c)

	if node.hasDependent(newNode) {
		return 0
	}

	sum := 0
	for _, d := range node.Dependents {
		sum += s.depAdd(newNode, d)
	}

	if sum == 0 && c == WriteCollision {
		node.Dependents = append(node.Dependents, newNode)
		return 1
	}
	return sum
}

// combinedConflict folds the file/variable conflict check (conflict in
// access.go) together with the break/continue nest-and-iteration rule
// (§3) that also forces new_node to wait.
func (s *Scheduler) combinedConflict(newNode, node *GraphNode) ConflictKind {
	if c := conflict(newNode.Access, node.Access); c != NoClash {
		return c
	}
	if hasLoopControlConflict(newNode, node) {
		return WriteCollision
	}
	return NoClash
}

func hasLoopControlConflict(a, b *GraphNode) bool {
	for _, ctrl := range loopControlEntries(a.Access) {
		if loopControlFires(ctrl, a.Iteration, b.Nest, b.Iteration) {
			return true
		}
	}
	for _, ctrl := range loopControlEntries(b.Access) {
		if loopControlFires(ctrl, b.Iteration, a.Nest, a.Iteration) {
			return true
		}
	}
	return false
}

// removeLocked implements graph remove (§4.3), invoked when a
// dispatched node completes or is found cancelled at the dispatch
// cursor. Must be called with the scheduler mutex held.
func (s *Scheduler) removeLocked(node *GraphNode, status int) {
	if node.Command != nil && (node.Command.Kind == KindBreak || node.Command.Kind == KindContinue) {
		s.cancelLocked(node, status)
	}

	for _, d := range node.Dependents {
		d.Unresolved--
		if d.Unresolved == 0 {
			s.frontierAddLocked(d)
		}
	}

	s.finishNodeLocked(node, status)
	s.maybeSynthesizeEOFLocked()
}

// finishNodeLocked releases node's resources and propagates completion
// to its parent compound (§4.3 step 3-4). It also releases node's
// accessor claim on every variable version it read, reclaiming
// superseded versions once their last reader is gone. A TestTail/
// BodyTail child drives the compound's expander before the parent's
// Active count is consulted, unless node was pruned by the
// cancellation engine: a cancelled node is reaped without re-expanding
// its parent (§5). A parent fully reduced to Simple with no active
// children left leaves the frontier, releases its own dependents and,
// recursively, finishes in turn.
func (s *Scheduler) finishNodeLocked(node *GraphNode, status int) {
	delete(s.liveNodes, node.ID)

	if node.Flags.has(FlagFree) {
		node.Command = nil
	}
	node.Dependents = nil

	for _, r := range node.ReadVersions {
		if v, ok := s.vars.vars[r.Name]; ok {
			releaseAccessor(v, r.Version)
		}
	}
	node.ReadVersions = nil

	parent := node.Parent
	if parent == nil {
		return
	}
	parent.Active--

	if !node.Cancelled() {
		switch {
		case node.Flags.has(FlagTestTail):
			parent.Status = status
			s.onTestTailCompleteLocked(parent)
		case node.Flags.has(FlagBodyTail):
			parent.Status = status
			s.onBodyTailCompleteLocked(parent)
		}
	}

	if !parent.Type.isCompound() && parent.Active == 0 {
		s.frontier.remove(parent)
		for _, d := range parent.Node.Dependents {
			d.Unresolved--
			if d.Unresolved == 0 {
				s.frontierAddLocked(d)
			}
		}
		s.finishNodeLocked(parent.Node, parent.Status)
	}
}

// frontierAddLocked wraps node in a FrontierNode, appends it to the
// frontier, and — for a compound — immediately expands its test segment
// (§4.4, §4.5). Must be called with the scheduler mutex held. A node
// the cancellation engine has already pruned is never (re)parked.
func (s *Scheduler) frontierAddLocked(node *GraphNode) {
	if node.Cancelled() {
		return
	}
	typ := frontierTypeFor(node)
	fn := newFrontierNode(node, typ)
	if !typ.isLoop() {
		fn.Iteration = node.Iteration
	}
	node.frontier = fn
	s.frontier.pushBack(fn)
	s.emit(Event{Step: s.nextStep(), NodeID: node.ID, Msg: "node_queued", Meta: map[string]interface{}{"type": typ.String()}})

	if typ.isCompound() {
		s.expandInitialLocked(fn)
	}

	s.cond.Broadcast()
}

func frontierTypeFor(node *GraphNode) FrontierNodeType {
	if node.Command == nil {
		return FrontierSimple
	}
	switch node.Command.Kind {
	case KindAnd:
		return FrontierAnd
	case KindOr:
		return FrontierOr
	case KindIf:
		return FrontierIf
	case KindWhile:
		return FrontierWhile
	case KindUntil:
		return FrontierUntil
	case KindFor:
		return FrontierFor
	default:
		return FrontierSimple
	}
}

