// Package app wires the build engine together: it loads the build
// definition through a config.Loader, constructs the variable resolver
// and dependency graph, and drives the executor, optionally re-running
// on file changes in watch mode.
package app
