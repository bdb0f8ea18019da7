package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vk/forge/internal/dag"
	"github.com/vk/forge/internal/vars"
)

// watchDebounce coalesces the bursts of events editors and generators
// produce for a single logical change.
const watchDebounce = 250 * time.Millisecond

// watch runs the build, then re-runs it whenever a definition file or
// file prerequisite changes. Execution failures do not stop the loop;
// definition errors do, since the watch set itself may be wrong.
func (a *App) watch(ctx context.Context, buildFile string) error {
	for {
		err := a.runOnce(ctx, buildFile)
		if err != nil {
			var defErr *DefinitionError
			if errors.As(err, &defErr) {
				return err
			}
			// Let the user fix the input and save again.
			a.logger.Error("Build failed, watching for changes.", "error", err)
		}

		paths, err := a.watchSet(ctx, buildFile)
		if err != nil {
			return err
		}

		if err := a.awaitChange(ctx, paths); err != nil {
			return err
		}
		a.logger.Info("Change detected, re-running build.")
	}
}

// watchSet collects the files whose changes should trigger a re-run:
// every loaded definition file and every file prerequisite in the graph.
func (a *App) watchSet(ctx context.Context, buildFile string) ([]string, error) {
	model, err := a.loader.Load(ctx, buildFile)
	if err != nil {
		return nil, &DefinitionError{Err: err}
	}
	resolver := vars.NewResolver(model)
	graph, err := dag.Build(ctx, model, resolver)
	if err != nil {
		return nil, &DefinitionError{Err: err}
	}

	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	for _, f := range model.Files {
		add(f)
	}
	for _, name := range graph.Order {
		for _, p := range graph.Nodes[name].FilePrereqs {
			add(p)
		}
	}
	return paths, nil
}

// awaitChange blocks until one of the paths changes or ctx is done.
func (a *App) awaitChange(ctx context.Context, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			// Prerequisites may not exist yet on a broken build.
			a.logger.Debug("Cannot watch path, skipping.", "path", p, "error", err)
		}
	}
	a.logger.Info("Watching for changes.", "paths", len(paths))

	// First event arms the debounce timer; later events reset it.
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("file watcher closed unexpectedly")
			}
			a.logger.Debug("File event.", "event", event.String())
			debounce = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("file watcher closed unexpectedly")
			}
			a.logger.Warn("File watcher error.", "error", err)
		case <-debounce:
			return nil
		}
	}
}
