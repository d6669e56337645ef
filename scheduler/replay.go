package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"shellsched/scheduler/store"
)

// ErrReplayMismatch is returned by ReplayVerifyOrder when a recorded run
// shows two write-conflicting commands completing out of source order —
// a violation of §8's P1 happens-before invariant, in the spirit of the
// teacher's deterministic-replay mismatch detector, adapted from
// re-running recorded I/O to re-checking a recorded completion order.
var ErrReplayMismatch = fmt.Errorf("scheduler: replay detected a write-ordering violation")

// ReplayVerifyOrder re-derives each record's source-submission order from
// its NodeID (nextNodeID hands out "n1", "n2", ... in intake order) and
// checks that no write-conflicting pair of records completed out of that
// order. It is the basis of the P1 property test (§8) when driven off a
// real Store instead of an in-process Snapshot.
func ReplayVerifyOrder(records []store.Record) error {
	sorted := make([]store.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Step < sorted[j].Step })

	for i := 0; i < len(sorted); i++ {
		oi, oki := nodeSourceOrder(sorted[i].NodeID)
		if !oki {
			continue
		}
		ai := fromAccessEntries(sorted[i].Access)
		for j := i + 1; j < len(sorted); j++ {
			oj, okj := nodeSourceOrder(sorted[j].NodeID)
			if !okj {
				continue
			}
			aj := fromAccessEntries(sorted[j].Access)
			if conflict(ai, aj) != WriteCollision {
				continue
			}
			if oj < oi {
				return fmt.Errorf("%w: node %s (source order %d) completed at step %d before node %s (source order %d) at step %d",
					ErrReplayMismatch, sorted[j].NodeID, oj, sorted[j].Step, sorted[i].NodeID, oi, sorted[i].Step)
			}
		}
	}
	return nil
}

func nodeSourceOrder(id string) (int, bool) {
	if !strings.HasPrefix(id, "n") {
		return 0, false
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func fromAccessEntries(entries []store.AccessEntry) AccessSet {
	set := make(AccessSet, len(entries))
	for i, e := range entries {
		set[i] = Access{Kind: accessKindFromString(e.Kind), Name: e.Name, TargetNest: e.Nest}
	}
	return set
}

func accessKindFromString(s string) AccessKind {
	switch s {
	case "Write":
		return AccessWrite
	case "Continue":
		return AccessContinue
	case "Break":
		return AccessBreak
	default:
		return AccessRead
	}
}
