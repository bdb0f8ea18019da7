package app

import (
	"context"
	"errors"

	"github.com/vk/forge/internal/ctxlog"
	"github.com/vk/forge/internal/dag"
	"github.com/vk/forge/internal/executor"
	"github.com/vk/forge/internal/vars"
)

// Run executes the configured build: one run normally, a reload loop
// in watch mode.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	buildFile, err := a.buildFilePath()
	if err != nil {
		return &DefinitionError{Err: err}
	}
	a.logger.Debug("Build file resolved.", "path", buildFile)

	if a.config.Watch {
		return a.watch(ctx, buildFile)
	}
	return a.runOnce(ctx, buildFile)
}

// runOnce loads the definition, builds the graph, and executes the
// requested targets. The graph is built fresh per run: staleness lives
// on the filesystem, never in memory across runs.
func (a *App) runOnce(ctx context.Context, buildFile string) error {
	logger := a.logger

	model, err := a.loader.Load(ctx, buildFile)
	if err != nil {
		return &DefinitionError{Err: err}
	}

	resolver := vars.NewResolver(model)

	graph, err := dag.Build(ctx, model, resolver)
	if err != nil {
		return &DefinitionError{Err: err}
	}
	logger.Debug("Dependency graph built.", "targets", len(graph.Nodes), "default", graph.Default)

	exec := executor.New(graph, resolver, executor.Options{
		Workers:        a.config.Workers,
		DryRun:         a.config.DryRun,
		Verbose:        a.config.Verbose,
		DefaultTimeout: a.config.DefaultTimeout,
		Stdout:         a.outW,
		Stderr:         a.errW,
	})

	logger.Info("🚀 Starting build.", "targets", a.config.Targets, "workers", a.config.Workers, "dry_run", a.config.DryRun)
	results, err := exec.Run(ctx, a.config.Targets)
	if err != nil {
		// Unknown names and missing file prerequisites are definition
		// problems even though they surface during execution.
		var unknownErr *dag.UnknownTargetError
		if errors.As(err, &unknownErr) {
			return &DefinitionError{Err: err}
		}
		var undefErr *vars.UndefinedVariableError
		var cyclicErr *vars.CyclicVariableError
		if errors.As(err, &undefErr) || errors.As(err, &cyclicErr) {
			return &DefinitionError{Err: err}
		}
		return err
	}

	rebuilt, skipped := 0, 0
	for _, res := range results {
		logger.Debug("Target finished.", "target", res.Target, "outcome", res.Outcome.String(), "reason", res.Reason, "duration", res.Duration)
		switch res.Outcome {
		case executor.Rebuilt, executor.WouldBuild:
			rebuilt++
		case executor.Skipped:
			skipped++
		}
	}
	logger.Info("🏁 Build finished.", "rebuilt", rebuilt, "up_to_date", skipped)
	return nil
}
