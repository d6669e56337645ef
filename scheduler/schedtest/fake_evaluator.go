// Package schedtest provides a fake scheduler.Evaluator backed by an
// in-memory virtual filesystem and variable table, for use by property
// tests and examples that need real read/write/conflict behavior without
// spawning actual OS processes.
package schedtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"shellsched/scheduler"
)

// FakeEvaluator runs Simple/VarAssign/Redir commands against an
// in-memory filesystem instead of a real shell. It implements
// scheduler.Evaluator, including the variable-versioning protocol
// Evaluate's doc comment describes.
//
// Commands are interpreted by a tiny convention rather than a real
// shell grammar: a command whose Args[0] is "false" exits 1; every other
// command exits 0. Every command run is logged. This is enough
// surface for property tests and examples to exercise real
// read-after-write and write-after-write ordering without needing an
// actual shell.
type FakeEvaluator struct {
	mu    sync.Mutex
	files map[string]string
	log   []string
}

// NewFakeEvaluator creates an evaluator with an empty filesystem.
func NewFakeEvaluator() *FakeEvaluator {
	return &FakeEvaluator{files: make(map[string]string)}
}

// File returns the current contents of path and whether it exists.
func (f *FakeEvaluator) File(path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.files[path]
	return v, ok
}

// Log returns a copy of every command this evaluator has run, in the
// order Evaluate observed them (dispatch order, not source order —
// tests use this to assert on observed concurrency/ordering).
func (f *FakeEvaluator) Log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.log))
	copy(out, f.log)
	return out
}

// Evaluate implements scheduler.Evaluator.
func (f *FakeEvaluator) Evaluate(ctx context.Context, s *scheduler.Scheduler, node *scheduler.GraphNode) (int, error) {
	cmd := node.Command
	if cmd == nil {
		return 0, nil
	}

	switch cmd.Kind {
	case scheduler.KindVarAssign:
		return f.runAssign(s, node, cmd)
	case scheduler.KindBackground:
		return f.Evaluate(ctx, s, &scheduler.GraphNode{Command: cmd.Inner, Versions: node.Versions})
	case scheduler.KindBreak, scheduler.KindContinue, scheduler.KindEof:
		return 0, nil
	}

	if cmd.Kind != scheduler.KindSimple {
		return 0, fmt.Errorf("schedtest: FakeEvaluator cannot evaluate %s directly", cmd.Kind)
	}

	for _, name := range dollarArgs(cmd.Args) {
		version := s.ReadLatest(name)
		if version == nil {
			continue
		}
		s.QueueReader(node, name, version)
	}

	f.mu.Lock()
	f.log = append(f.log, cmd.Summary())
	f.mu.Unlock()

	status := f.statusFor(cmd)
	f.applyRedirects(cmd)
	return status, nil
}

// runAssign logs the command, evaluates the wrapped Simple (so redirects
// and exit status still apply) and then publishes every variable the
// command assigns through the *VarVersion addLocked created for it at
// intake time.
func (f *FakeEvaluator) runAssign(s *scheduler.Scheduler, node *scheduler.GraphNode, cmd *scheduler.CommandTree) (int, error) {
	f.mu.Lock()
	f.log = append(f.log, cmd.Summary())
	f.mu.Unlock()

	status := 0
	assigns := cmd.Assigns
	if cmd.Simple != nil {
		status = f.statusFor(cmd.Simple)
		f.applyRedirects(cmd.Simple)
		assigns = append(assigns, cmd.Simple.Assigns...)
	}
	for _, a := range assigns {
		if version, ok := node.Versions[a.Name]; ok {
			s.Publish(version, a.Value)
		}
	}
	return status, nil
}

func (f *FakeEvaluator) statusFor(cmd *scheduler.CommandTree) int {
	if len(cmd.Args) == 0 {
		return 0
	}
	switch cmd.Args[0] {
	case "false":
		return 1
	default:
		return 0
	}
}

func (f *FakeEvaluator) applyRedirects(cmd *scheduler.CommandTree) {
	for _, r := range cmd.Redirects {
		switch r.Kind {
		case scheduler.RedirOutput, scheduler.RedirClobber:
			f.mu.Lock()
			f.files[r.Target] = strings.Join(cmd.Args, " ")
			f.mu.Unlock()
		case scheduler.RedirAppend:
			f.mu.Lock()
			f.files[r.Target] += strings.Join(cmd.Args, " ")
			f.mu.Unlock()
		}
	}
}

// dollarArgs returns every argument that is a literal $name or ${name}
// reference, mirroring the analyzer's own leading-reference scan
// closely enough for test purposes.
func dollarArgs(args []string) []string {
	var names []string
	for _, a := range args {
		trimmed := strings.TrimPrefix(a, "$")
		if trimmed == a {
			continue
		}
		trimmed = strings.TrimPrefix(trimmed, "{")
		trimmed = strings.TrimSuffix(trimmed, "}")
		if trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
