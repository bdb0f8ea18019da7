// Package dag builds and validates the dependency graph of a build
// definition: one node per target, edges from prerequisites, cycle
// detection, and resolution of requested target names to nodes.
package dag
