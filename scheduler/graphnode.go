package scheduler

import (
	"fmt"
	"sync/atomic"
	"time"
)

var nodeIDCounter atomic.Int64

// nextNodeID returns a process-wide monotonically increasing node ID,
// used the same way the teacher's StepID counters give deterministic,
// collision-free identifiers without a clock or RNG.
func nextNodeID() string {
	return fmt.Sprintf("n%d", nodeIDCounter.Add(1))
}

// NodeFlags is a bit set of GraphNode lifecycle markers (§3).
type NodeFlags uint8

const (
	// FlagKeep marks a node whose CommandTree must not be freed on
	// removal — the Evaluator may still reference it.
	FlagKeep NodeFlags = 1 << iota
	// FlagFree marks a node whose CommandTree should be released when
	// the node is removed from the graph.
	FlagFree
	// FlagTestTail marks the last command of a compound's test segment;
	// its exit status becomes the compound's test result.
	FlagTestTail
	// FlagBodyTail marks the last command of a compound's body segment;
	// its exit status becomes the compound's status.
	FlagBodyTail
	// FlagCancelled marks a node pruned by the cancellation engine.
	// Cancelled frontier nodes are skipped by dispatch (§4.4).
	FlagCancelled
)

func (f NodeFlags) has(bit NodeFlags) bool { return f&bit != 0 }

// GraphNode is one scheduled unit of work: a CommandTree plus the
// dependency bookkeeping the scheduler needs to decide when it may run.
//
// GraphNode.Parent is a non-owning back-edge to the enclosing compound's
// FrontierNode (§9 "Ownership vs. back-pointers"); the owning edge runs
// the other way, through Dependents.
type GraphNode struct {
	ID         string
	Command    *CommandTree
	Access     AccessSet
	Dependents []*GraphNode // insertion-ordered
	Unresolved int
	Parent     *FrontierNode
	Nest       int
	Iteration  int
	Flags      NodeFlags

	// Versions holds, for each variable this node assigns, the
	// *VarVersion CreateVersion returned when the node was added to the
	// graph (§4.7). An Evaluator publishes the computed value through
	// the matching entry once it finishes executing the assignment.
	Versions map[string]*VarVersion

	// ReadVersions records every version this node queued a read
	// against via QueueReader, so finishNodeLocked can release the
	// accessor and let superseded versions be reclaimed (§9 "Variable
	// version cleanup").
	ReadVersions []VersionRead

	// Dispatched is set once Pull hands this node to a worker. It
	// distinguishes, for the cancellation engine, a node still sitting in
	// the graph (safe to reap immediately) from one a worker is actively
	// running (must be left alone until its own Complete call reaps it —
	// §5 "any already-running command is allowed to finish").
	Dispatched bool

	// DispatchedAt records when Pull handed this node to a worker, used
	// to report dispatch_latency_ms on Complete. Zero until Dispatched.
	DispatchedAt time.Time

	// frontier is set while this node is parked at the frontier,
	// nil otherwise — the graph<->frontier relationship invariant (§3,
	// invariant 2: unresolved == 0 iff the node is on the frontier).
	frontier *FrontierNode
}

func newGraphNode(cmd *CommandTree, access AccessSet, nest, iteration int, flags NodeFlags) *GraphNode {
	return &GraphNode{
		ID:        nextNodeID(),
		Command:   cmd,
		Access:    access,
		Nest:      nest,
		Iteration: iteration,
		Flags:     flags,
	}
}

func (n *GraphNode) Cancelled() bool { return n.Flags.has(FlagCancelled) }

func (n *GraphNode) markCancelled() { n.Flags |= FlagCancelled }

// removeDependent drops d from n's Dependents list, if present, and
// reports whether it was found.
func (n *GraphNode) removeDependent(d *GraphNode) bool {
	for i, cur := range n.Dependents {
		if cur == d {
			n.Dependents = append(n.Dependents[:i], n.Dependents[i+1:]...)
			return true
		}
	}
	return false
}

// hasDependent reports whether d already appears in n's Dependents —
// used by dep_add's short-circuit (§4.2).
func (n *GraphNode) hasDependent(d *GraphNode) bool {
	for _, cur := range n.Dependents {
		if cur == d {
			return true
		}
	}
	return false
}
