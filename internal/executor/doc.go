// Package executor walks the build graph in dependency order and runs
// the actions of stale targets as external processes. Staleness is
// evaluated when a node is scheduled, after all of its prerequisites
// have completed, so a rebuilt prerequisite always forces its
// dependents to rebuild within the same run.
//
// Scheduling uses a bounded worker pool over the requested subgraph.
// The first failure stops new work from starting; processes already
// running are allowed to finish so partially written outputs are not
// corrupted by a kill.
package executor
