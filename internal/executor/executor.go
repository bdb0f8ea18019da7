package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vk/forge/internal/ctxlog"
	"github.com/vk/forge/internal/dag"
	"github.com/vk/forge/internal/vars"
)

// Options configures one execution run.
type Options struct {
	// Workers bounds the number of targets building concurrently.
	// Values below 1 mean sequential execution.
	Workers int
	// DryRun prints the commands of stale targets instead of running them.
	DryRun bool
	// Verbose echoes each command before it runs.
	Verbose bool
	// DefaultTimeout bounds command invocations for targets that do
	// not declare their own timeout. Zero disables the bound.
	DefaultTimeout time.Duration
	// Stdout and Stderr receive the invoked tools' output as it is
	// produced, in addition to per-target capture. Defaults to the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs the stale subset of a build graph.
type Executor struct {
	graph    *dag.Graph
	resolver *vars.Resolver
	opts     Options

	wg sync.WaitGroup

	mu      sync.Mutex
	results map[string]*Result
}

// New creates an Executor over a validated graph.
func New(graph *dag.Graph, resolver *vars.Resolver, opts Options) *Executor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Executor{
		graph:    graph,
		resolver: resolver,
		opts:     opts,
		results:  make(map[string]*Result),
	}
}

// Run builds the requested targets and everything they depend on.
// An empty request builds the graph's default target. The returned
// results cover every node of the requested subgraph, in dependency
// (post-) order, and are complete even when the run fails.
func (e *Executor) Run(ctx context.Context, requested []string) ([]Result, error) {
	logger := ctxlog.FromContext(ctx)

	roots, err := e.graph.Resolve(requested)
	if err != nil {
		return nil, err
	}

	nodes, err := e.graph.Closure(roots)
	if err != nil {
		return nil, err
	}
	logger.Debug("Executor: requested subgraph collected.", "nodes", len(nodes))

	// Membership set: dependents outside the requested subgraph must
	// not be scheduled or counted.
	subset := make(map[string]*dag.Node, len(nodes))
	for _, n := range nodes {
		n.SetState(dag.Pending)
		n.InitCounters()
		subset[n.ID] = n
	}

	readyChan := make(chan *dag.Node, len(nodes))
	for _, n := range nodes {
		if n.DepCount() == 0 {
			readyChan <- n
		}
	}

	// runCtx gates the start of new targets; commands themselves run
	// under the caller's ctx so a failure elsewhere does not kill
	// processes that are already writing output files.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.wg.Add(len(nodes))

	workers := e.opts.Workers
	if workers > len(nodes) {
		workers = len(nodes)
	}
	logger.Debug("Executor: starting worker pool.", "workers", workers)
	for i := 0; i < workers; i++ {
		go e.worker(ctx, runCtx, readyChan, cancel, subset, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("Executor: all nodes completed.")

	results := make([]Result, 0, len(nodes))
	var rootCause error
	var failedTarget string
	anyFailed := false
	for _, n := range nodes {
		res := e.result(n.ID)
		results = append(results, *res)
		if res.Outcome != Failed {
			continue
		}
		anyFailed = true
		// Skip-cascade and cancellation records are symptoms; report
		// the target that actually broke.
		if res.Err != nil && rootCause == nil &&
			!errors.Is(res.Err, ErrSkippedUpstream) && !errors.Is(res.Err, context.Canceled) {
			rootCause = res.Err
			failedTarget = n.ID
		}
	}

	if rootCause != nil {
		return results, fmt.Errorf("building target '%s': %w", failedTarget, rootCause)
	}
	if anyFailed {
		// Only cancellation symptoms remain.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return results, fmt.Errorf("build aborted: %w", ctxErr)
		}
		return results, errors.New("build failed")
	}
	return results, nil
}

// record stores a node's result.
func (e *Executor) record(res *Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[res.Target] = res
}

// result fetches a node's result, synthesizing a Failed record for
// nodes that never reported (which only happens on internal errors).
func (e *Executor) result(id string) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res, ok := e.results[id]; ok {
		return res
	}
	return &Result{Target: id, Outcome: Failed, Reason: "never scheduled"}
}
