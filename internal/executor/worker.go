package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/forge/internal/ctxlog"
	"github.com/vk/forge/internal/dag"
	"github.com/vk/forge/internal/stale"
)

// worker is the processing loop of a single concurrent worker. baseCtx
// is the caller's context, used for command execution; runCtx is
// cancelled on the first failure to stop new targets from starting.
func (e *Executor) worker(baseCtx, runCtx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, subset map[string]*dag.Node, workerID int) {
	logger := ctxlog.FromContext(baseCtx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "target", node.ID)

		if runCtx.Err() != nil {
			e.skipNode(baseCtx, node, runCtx.Err(), subset)
			continue
		}

		workerLogger.Debug("Worker picked up target.")
		node.SetState(dag.Running)

		res := e.processNode(baseCtx, node)
		e.record(res)

		if res.Outcome == Failed {
			workerLogger.Error("Target failed.", "error", res.Err)
			node.Err = res.Err
			node.SetState(dag.Failed)
			cancel()
			e.skipDependents(baseCtx, node, subset)
			e.wg.Done()
			continue
		}

		if res.Outcome == Skipped {
			workerLogger.Debug("Target up to date.", "reason", res.Reason)
			node.SetState(dag.Skipped)
		} else {
			workerLogger.Debug("Target rebuilt.", "reason", res.Reason)
			node.SetState(dag.Built)
		}

		for _, dependent := range node.Dependents {
			if _, ok := subset[dependent.ID]; !ok {
				continue
			}
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent target.", "dependent", dependent.ID)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// processNode evaluates staleness for one node and, if it is stale,
// runs (or in a dry run, prints) its commands.
func (e *Executor) processNode(ctx context.Context, node *dag.Node) *Result {
	start := time.Now()
	res := &Result{Target: node.ID}

	depOutputs, depRebuilt := e.collectDepState(node)

	// Effective outputs: the expanded declared outputs, or the
	// sentinel standing in for targets without natural outputs.
	outputs := node.Outputs
	if len(outputs) == 0 && node.Sentinel != "" {
		outputs = []string{node.Sentinel}
	}

	decision, err := stale.Evaluate(node.Target, outputs, node.FilePrereqs, depOutputs, depRebuilt)
	if err != nil {
		res.Outcome = Failed
		res.Err = err
		res.Reason = err.Error()
		res.Duration = time.Since(start)
		return res
	}
	res.Reason = decision.Reason

	if !decision.Stale {
		res.Outcome = Skipped
		res.Duration = time.Since(start)
		return res
	}

	if e.opts.DryRun {
		if err := e.printDryRun(node); err != nil {
			res.Outcome = Failed
			res.Err = err
			res.Reason = err.Error()
			res.Duration = time.Since(start)
			return res
		}
		res.Outcome = WouldBuild
		res.Duration = time.Since(start)
		return res
	}

	exitCode, output, err := e.runCommands(ctx, node)
	res.ExitCode = exitCode
	res.Output = output
	res.Duration = time.Since(start)
	if err != nil {
		res.Outcome = Failed
		res.Err = err
		res.Reason = err.Error()
		return res
	}

	if node.Sentinel != "" {
		if err := touchSentinel(node.Sentinel); err != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("target '%s': %w", node.ID, err)
			res.Reason = res.Err.Error()
			return res
		}
	}

	res.Outcome = Rebuilt
	return res
}

// collectDepState gathers the effective outputs of the node's
// prerequisite targets and whether any of them was rebuilt this run.
func (e *Executor) collectDepState(node *dag.Node) (depOutputs []string, depRebuilt bool) {
	for _, dep := range node.Deps {
		if dep.State() == dag.Built {
			depRebuilt = true
		}
		depOutputs = append(depOutputs, dep.Outputs...)
		if len(dep.Outputs) == 0 && dep.Sentinel != "" {
			depOutputs = append(depOutputs, dep.Sentinel)
		}
	}
	return depOutputs, depRebuilt
}

// skipNode marks a node failed without running it. Its dependents are
// never unlocked through the dep counter, so they must be skip-failed
// here too or the run's wait group never drains.
func (e *Executor) skipNode(ctx context.Context, node *dag.Node, cause error, subset map[string]*dag.Node) {
	logger := ctxlog.FromContext(ctx)
	node.Finish(func() {
		logger.Warn("Skipping target.", "target", node.ID, "cause", cause)
		node.Err = cause
		node.SetState(dag.Failed)
		e.record(&Result{Target: node.ID, Outcome: Failed, Reason: cause.Error(), Err: cause})
		e.wg.Done()
	})
	e.skipDependents(ctx, node, subset)
}

// skipDependents recursively marks all downstream nodes failed once a
// prerequisite has failed.
func (e *Executor) skipDependents(ctx context.Context, node *dag.Node, subset map[string]*dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		if _, ok := subset[dependent.ID]; !ok {
			continue
		}
		dependent.Finish(func() {
			logger.Warn("Skipping dependent target due to upstream failure.", "target", dependent.ID, "failed_prerequisite", node.ID)
			err := fmt.Errorf("%w: prerequisite '%s' of '%s'", ErrSkippedUpstream, node.ID, dependent.ID)
			dependent.Err = err
			dependent.SetState(dag.Failed)
			e.record(&Result{Target: dependent.ID, Outcome: Failed, Reason: err.Error(), Err: err})
			e.wg.Done()
			e.skipDependents(ctx, dependent, subset)
		})
	}
}

// printDryRun writes the expanded commands a stale target would run.
// Expansion errors fail the dry run just as they would a real one.
func (e *Executor) printDryRun(node *dag.Node) error {
	for _, tmpl := range node.Target.Commands {
		cmd, err := e.resolver.Expand(tmpl)
		if err != nil {
			return fmt.Errorf("target '%s': %w", node.ID, err)
		}
		fmt.Fprintln(e.opts.Stdout, cmd)
	}
	return nil
}
