package scheduler

// intakeLocked implements intake (§4.8). Must be called with the
// scheduler mutex held.
//
// cd/exit are not actually run here — the scheduler has no process
// model of its own (§6.2 is entirely the Evaluator's concern) — but
// they are still diverted around the graph: wrapping them in a
// Background node (as any other Simple would be) would let the
// scheduler parallelize a builtin that must observe and mutate the
// shell's own process-wide state (working directory, liveness), which
// every other command implicitly depends on. Submit returns them to the
// caller via ErrSyncBuiltin so the caller's evaluator can run them
// synchronously before resuming submission, exactly as §6.3's "main/
// top-level thread may run some commands (cd, exit) synchronously"
// describes.
func (s *Scheduler) intakeLocked(raw *CommandTree) error {
	if raw == nil {
		return newAnalyzerError("intake received a nil CommandTree")
	}

	switch raw.Kind {
	case KindEof:
		s.eof = true
		s.maybeSynthesizeEOFLocked()
		return nil

	case KindSemi:
		if raw.Left == nil || raw.Right == nil {
			return newAnalyzerError("Semi missing Left/Right child")
		}
		if err := s.intakeLocked(raw.Left); err != nil {
			return err
		}
		return s.intakeLocked(raw.Right)

	case KindNot:
		if raw.Inner == nil {
			return newAnalyzerError("Not missing Inner child")
		}
		return s.intakeLocked(raw.Inner)

	case KindSimple:
		if isSyncBuiltin(raw) {
			return ErrSyncBuiltin
		}
		if isAssignmentsOnly(raw) {
			return s.addCommandLocked(&CommandTree{Kind: KindVarAssign, Simple: raw}, 0)
		}
		return s.addCommandLocked(&CommandTree{Kind: KindBackground, Inner: raw}, 0)

	default:
		return s.addCommandLocked(raw, 0)
	}
}

// addCommandLocked runs the analyzer over cmd and adds the resulting
// GraphNode to the dependency graph (§4.1, §4.2). Every variable this
// node assigns gets a fresh VarVersion (§4.7) up front, so a reader
// added later can queue against it before the writer has actually run.
func (s *Scheduler) addCommandLocked(cmd *CommandTree, nest int) error {
	access, err := AnalyzeAccess(cmd, nest)
	if err != nil {
		return err
	}
	node := newGraphNode(cmd, access, nest, 0, FlagFree)
	s.addLocked(node)
	return nil
}

// assignsOf unwraps VarAssign/Background/Not wrappers to find the
// Assigns list of the underlying Simple command, if any.
func assignsOf(cmd *CommandTree) []VarAssign {
	for cmd != nil {
		switch cmd.Kind {
		case KindVarAssign:
			cmd = cmd.Simple
		case KindBackground, KindNot:
			cmd = cmd.Inner
		case KindSimple:
			return cmd.Assigns
		default:
			return nil
		}
	}
	return nil
}

func isSyncBuiltin(cmd *CommandTree) bool {
	if len(cmd.Args) == 0 {
		return false
	}
	switch cmd.Args[0] {
	case "cd", "exit":
		return true
	default:
		return false
	}
}

func isAssignmentsOnly(cmd *CommandTree) bool {
	return len(cmd.Args) == 0 && len(cmd.Assigns) > 0
}
