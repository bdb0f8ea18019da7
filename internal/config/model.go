package config

import "time"

// Model is the unified, format-agnostic representation of an entire
// build definition: every target across the root file and its
// includes, plus all variable assignments.
type Model struct {
	// Targets holds every declared target in declaration order. Order
	// matters: the first declared target is the fallback default.
	Targets []*Target

	// DefaultTarget is the target built when the user requests none.
	// Empty means "first declared target".
	DefaultTarget string

	// Vars holds unconditional variable assignments (last write wins
	// across files, in load order).
	Vars map[string]string

	// FileVars holds variables imported from external vars_file
	// documents. They rank below Vars and above Defaults.
	FileVars map[string]string

	// Defaults holds default-if-absent assignments, consulted only
	// when a name has no other definition.
	Defaults map[string]string

	// BuildFile is the absolute path of the root build definition file.
	BuildFile string

	// Files lists every definition and vars file that contributed to
	// the model, the root file included. Watch mode re-runs when any
	// of them changes.
	Files []string

	// RootLevels is how many directory levels above BuildFile the
	// project root sits. Zero means the build file's own directory.
	RootLevels int
}

// Target is the format-agnostic representation of a single unit of
// work: a named node in the build graph with prerequisites and an
// action. Immutable once loaded.
type Target struct {
	Name        string
	Description string

	// Outputs are the files this target produces. Paths may contain
	// ${VAR} references. A target with no outputs and no sentinel is
	// always considered stale.
	Outputs []string

	// Prereqs reference either other targets by name or plain file
	// paths; which one is decided at graph-construction time.
	Prereqs []string

	// Commands is the ordered action: shell command templates, each
	// expanded against the variable scope before execution.
	Commands []string

	// Phony marks a target that produces no file and is always stale.
	Phony bool

	// Always forces staleness even when outputs exist and are current.
	Always bool

	// Sentinel, if set, names a file touched after a successful run
	// and used for staleness in place of real outputs. This gives
	// one-shot steps with no natural output a cacheable "done" marker.
	Sentinel string

	// Timeout bounds each command invocation. Zero means the run's
	// default applies.
	Timeout time.Duration
}

// HasOutputs reports whether staleness for the target can be judged
// from files at all, either real outputs or a sentinel.
func (t *Target) HasOutputs() bool {
	return len(t.Outputs) > 0 || t.Sentinel != ""
}

// EffectiveOutputs returns the file set used for staleness checks:
// the declared outputs, or the sentinel when no outputs exist.
func (t *Target) EffectiveOutputs() []string {
	if len(t.Outputs) > 0 {
		return t.Outputs
	}
	if t.Sentinel != "" {
		return []string{t.Sentinel}
	}
	return nil
}
