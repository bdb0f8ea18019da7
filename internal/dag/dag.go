package dag

import (
	"sync"
	"sync/atomic"

	"github.com/vk/forge/internal/config"
)

// NodeState tracks a node's progress through one build run.
type NodeState int32

const (
	// Pending means the node has not been picked up by a worker yet.
	Pending NodeState = iota
	// Running means the node's staleness check or action is in progress.
	Running
	// Built means the node's action ran to completion.
	Built
	// Skipped means the node was up to date and its action did not run.
	Skipped
	// Failed means the node's action failed, or an upstream failure
	// prevented it from running.
	Failed
)

// Graph is the validated dependency graph of one build definition.
type Graph struct {
	// Nodes is keyed by target name.
	Nodes map[string]*Node
	// Order preserves declaration order, for deterministic iteration
	// and the first-declared-target default.
	Order []string
	// Default is the target built when none is requested.
	Default string
}

// Node is a single target in the graph, together with the mutable
// bookkeeping one execution run needs. The config is immutable; the
// counters and state are only touched by the executor.
type Node struct {
	ID     string
	Target *config.Target

	// Outputs and Sentinel are the target's declarations with all
	// variable references expanded.
	Outputs  []string
	Sentinel string

	// FilePrereqs are the prerequisites that did not name a declared
	// target, interpreted as file paths (expanded).
	FilePrereqs []string

	// Deps are the prerequisite targets in declaration order, so the
	// sequential baseline builds siblings in the order they were
	// written. Dependents are the reverse edges, in linking order.
	Deps       []*Node
	Dependents []*Node

	// Err is the node's failure, if any, published before the node
	// enters the Failed state.
	Err error

	state    atomic.Int32
	depCount atomic.Int32
	doneOnce sync.Once
}

// State returns the node's current execution state.
func (n *Node) State() NodeState {
	return NodeState(n.state.Load())
}

// SetState publishes a new execution state for the node.
func (n *Node) SetState(s NodeState) {
	n.state.Store(int32(s))
}

// InitCounters primes the pending-dependency counter. Must be called
// once before execution, after all edges exist.
func (n *Node) InitCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// DecrementDepCount marks one prerequisite as complete and returns the
// number still outstanding.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// DepCount returns the number of prerequisites still outstanding.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// Finish runs f exactly once for this node, guarding the transition
// into a terminal state against racing workers and skip cascades.
func (n *Node) Finish(f func()) {
	n.doneOnce.Do(f)
}

// Resolve maps requested target names to graph nodes. An empty request
// resolves to the default target. Unknown names fail with
// UnknownTargetError.
func (g *Graph) Resolve(names []string) ([]*Node, error) {
	if len(names) == 0 {
		names = []string{g.Default}
	}
	nodes := make([]*Node, 0, len(names))
	for _, name := range names {
		n, ok := g.Nodes[name]
		if !ok {
			return nil, &UnknownTargetError{Name: name}
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Closure returns the requested nodes and all their transitive
// prerequisites, re-checking for cycles along the way. The graph is
// validated cycle-free at construction time; this guards against
// callers mutating edges afterwards.
func (g *Graph) Closure(roots []*Node) ([]*Node, error) {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var nodes []*Node

	var visit func(n *Node, stack []string) error
	visit = func(n *Node, stack []string) error {
		if visited[n.ID] {
			return nil
		}
		if visiting[n.ID] {
			return &CycleError{Path: append(stack, n.ID)}
		}
		visiting[n.ID] = true
		for _, dep := range n.Deps {
			if err := visit(dep, append(stack, n.ID)); err != nil {
				return err
			}
		}
		delete(visiting, n.ID)
		visited[n.ID] = true
		nodes = append(nodes, n)
		return nil
	}

	for _, root := range roots {
		if err := visit(root, nil); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}
