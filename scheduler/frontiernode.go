package scheduler

// FrontierNodeType gives a frontier node its semantic role for the
// expander (§3). Compound types shed their pending state and become
// Simple once fully expanded and completed (§9 "sentinel" pattern).
type FrontierNodeType int

const (
	FrontierSimple FrontierNodeType = iota
	FrontierAnd
	FrontierOr
	FrontierIf
	FrontierWhile
	FrontierUntil
	FrontierFor
)

func (t FrontierNodeType) String() string {
	switch t {
	case FrontierSimple:
		return "Simple"
	case FrontierAnd:
		return "And"
	case FrontierOr:
		return "Or"
	case FrontierIf:
		return "If"
	case FrontierWhile:
		return "While"
	case FrontierUntil:
		return "Until"
	case FrontierFor:
		return "For"
	default:
		return "Unknown"
	}
}

func (t FrontierNodeType) isCompound() bool { return t != FrontierSimple }

func (t FrontierNodeType) isLoop() bool { return t == FrontierWhile || t == FrontierUntil || t == FrontierFor }

// FrontierNode wraps a GraphNode while it sits at the frontier — the
// set of nodes whose Unresolved count has reached zero. A GraphNode has
// a FrontierNode only for the duration it is parked here (§3).
//
// For a compound, the FrontierNode plays two roles simultaneously: it
// is the parent under whose Dependents/Active accounting expanded
// children are tracked, and it is a placeholder in the frontier's
// ordered list so later sibling commands serialize against the
// compound's (eventually known) body access set.
type FrontierNode struct {
	Node      *GraphNode
	Type      FrontierNodeType
	Active    int // spawned children still alive
	Status    int // last observed exit status
	Iteration int // current loop iteration, for stamping new body nodes

	// pending stores what the expander needs once the test
	// result arrives. Zero value for non-compound nodes.
	pending pendingExpansion

	prev, next *FrontierNode
}

// pendingExpansion carries the compound's not-yet-expanded children,
// captured at FrontierNode creation time (§4.5).
type pendingExpansion struct {
	right        *CommandTree // And/Or
	then, els    *CommandTree // If
	loopBody     *CommandTree // While/Until/For
	loopVar      string       // For
	loopArgs     []string     // For
	loopArgIndex int          // For: next unbound argument
}

func newFrontierNode(node *GraphNode, typ FrontierNodeType) *FrontierNode {
	return &FrontierNode{Node: node, Type: typ}
}

// IsEOF reports whether fn is the synthetic sentinel pushed once intake
// has signalled EOF and the frontier has drained (§4.4).
func (f *FrontierNode) IsEOF() bool { return f.Node == nil }
