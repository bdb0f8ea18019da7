package dag

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/forge/internal/config"
	"github.com/vk/forge/internal/ctxlog"
	"github.com/vk/forge/internal/vars"
)

// Build constructs a complete, validated dependency graph from a
// config model. Output and prerequisite paths are expanded against the
// resolver here; command templates stay unexpanded until execution.
func Build(ctx context.Context, model *config.Model, resolver *vars.Resolver) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.")

	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create all nodes.
	for _, t := range model.Targets {
		if _, exists := graph.Nodes[t.Name]; exists {
			return nil, fmt.Errorf("duplicate target '%s'", t.Name)
		}

		outputs, err := resolver.ExpandAll(t.Outputs)
		if err != nil {
			return nil, fmt.Errorf("target '%s': %w", t.Name, err)
		}
		sentinel, err := resolver.Expand(t.Sentinel)
		if err != nil {
			return nil, fmt.Errorf("target '%s': %w", t.Name, err)
		}

		graph.Nodes[t.Name] = &Node{
			ID:       t.Name,
			Target:   t,
			Outputs:  outputs,
			Sentinel: sentinel,
		}
		graph.Order = append(graph.Order, t.Name)
	}
	logger.Debug("Build: node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link prerequisites. A prerequisite naming a declared
	// target becomes an edge; anything else is a file prerequisite.
	for _, name := range graph.Order {
		node := graph.Nodes[name]
		linked := make(map[string]struct{})
		for _, p := range node.Target.Prereqs {
			prereq, err := resolver.Expand(p)
			if err != nil {
				return nil, fmt.Errorf("target '%s': %w", name, err)
			}
			dep, ok := graph.Nodes[prereq]
			if !ok {
				node.FilePrereqs = append(node.FilePrereqs, prereq)
				continue
			}
			if dep == node {
				return nil, &CycleError{Path: []string{name, name}}
			}
			if _, dup := linked[dep.ID]; dup {
				continue
			}
			linked[dep.ID] = struct{}{}
			node.Deps = append(node.Deps, dep)
			dep.Dependents = append(dep.Dependents, node)
		}
	}
	logger.Debug("Build: node linking complete.")

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: cycle detection passed.")

	if err := graph.setDefault(model.DefaultTarget); err != nil {
		return nil, err
	}

	logger.Debug("Build: graph construction successful.", "default", graph.Default)
	return graph, nil
}

// setDefault records the default target: the declared one if present,
// else the first target in declaration order.
func (g *Graph) setDefault(declared string) error {
	if len(g.Order) == 0 {
		return errors.New("build definition declares no targets")
	}
	if declared != "" {
		if _, ok := g.Nodes[declared]; !ok {
			return &UnknownTargetError{Name: declared}
		}
		g.Default = declared
		return nil
	}
	g.Default = g.Order[0]
	return nil
}

// detectCycles checks for circular dependencies using DFS, keeping the
// traversal stack so the reported error names the full cycle path.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node, stack []string) error
	visit = func(node *Node, stack []string) error {
		visiting[node.ID] = true
		stack = append(stack, node.ID)
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return &CycleError{Path: append(stack, dep.ID)}
			}
			if !visited[dep.ID] {
				if err := visit(dep, stack); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, name := range g.Order {
		node := g.Nodes[name]
		if !visited[node.ID] {
			if err := visit(node, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
