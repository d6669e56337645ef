package scheduler

// AccessKind tags one entry of an AccessSet.
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessContinue
	AccessBreak
)

func (k AccessKind) String() string {
	switch k {
	case AccessRead:
		return "Read"
	case AccessWrite:
		return "Write"
	case AccessContinue:
		return "Continue"
	case AccessBreak:
		return "Break"
	default:
		return "Unknown"
	}
}

// Access is a single static read/write effect, or a loop-control marker.
//
// For Read/Write, Name holds a path, or (by convention) "$"+varname for
// a variable access — the "$" prefix keeps a variable named foo from
// colliding with a file named foo in the conflict check.
//
// For Continue/Break, Name is empty and TargetNest carries the
// effective loop-nest depth the directive targets.
type Access struct {
	Kind       AccessKind
	Name       string
	TargetNest int
}

// AccessSet is the static approximation of a command's read/write
// effects, as produced by the access analyzer (§4.1).
type AccessSet []Access

// VarAccessName returns the pseudo-path used for a variable name in an
// AccessSet, unifying file-scheduling and variable-scheduling through
// one conflict check.
func VarAccessName(name string) string {
	return "$" + name
}

// ConflictKind classifies why two AccessSets conflict.
type ConflictKind int

const (
	NoClash ConflictKind = iota
	WriteCollision
	ConcurrentRead
)

// conflict implements the file/variable half of the §3 conflict
// predicate: two entries with identical Name conflict iff at least one
// is a Write (WriteCollision), else both are reads (ConcurrentRead).
// Across two sets, any WriteCollision pair wins over ConcurrentRead.
// Continue/Break entries never participate here; their nest/iteration
// rule is handled separately by loopControlFires, since it needs the
// owning GraphNodes' nest/iteration, not just their AccessSets.
func conflict(a, b AccessSet) ConflictKind {
	result := NoClash
	for _, x := range a {
		if isLoopControl(x.Kind) {
			continue
		}
		for _, y := range b {
			if isLoopControl(y.Kind) {
				continue
			}
			if x.Name != y.Name {
				continue
			}
			if x.Kind == AccessWrite || y.Kind == AccessWrite {
				return WriteCollision
			}
			result = ConcurrentRead
		}
	}
	return result
}

func isLoopControl(k AccessKind) bool {
	return k == AccessContinue || k == AccessBreak
}

// loopControlEntries returns the Continue/Break entries of an AccessSet.
func loopControlEntries(set AccessSet) []Access {
	var out []Access
	for _, a := range set {
		if isLoopControl(a.Kind) {
			out = append(out, a)
		}
	}
	return out
}

// loopControlFires implements the §3 rule that a Continue/Break issued
// at ctrlNest/ctrlIteration, targeting loop nest ctrl.TargetNest,
// conflicts with (prunes, or blocks behind) a candidate node at
// candNest/candIteration:
//
//	candNest >= ctrl.TargetNest AND
//	  (Continue: candIteration == ctrlIteration) OR
//	  (Break:    candIteration >= ctrlIteration)
func loopControlFires(ctrl Access, ctrlIteration, candNest, candIteration int) bool {
	if candNest < ctrl.TargetNest {
		return false
	}
	if ctrl.Kind == AccessBreak {
		return candIteration >= ctrlIteration
	}
	return candIteration == ctrlIteration
}

// normalizeLevels implements the §8 boundary rule: break 0 / continue 0
// are treated as 1, and any requested level deeper than the actual
// nesting simply targets the outermost loop (nest 1).
func normalizeLevels(levels, nest int) int {
	if levels < 1 {
		levels = 1
	}
	target := nest - levels + 1
	if target < 1 {
		target = 1
	}
	return target
}
