// Package stale decides whether a target's outputs are outdated
// relative to its inputs, using file modification times. It is the
// policy half of incremental rebuilds; the executor interleaves these
// checks with execution so that a rebuilt prerequisite always forces
// its dependents stale.
package stale

import (
	"fmt"
	"os"
	"time"

	"github.com/vk/forge/internal/config"
	"github.com/vk/forge/internal/dag"
)

// Decision is the outcome of one staleness check. Reason is a short
// human-readable explanation for verbose logs and dry runs.
type Decision struct {
	Stale  bool
	Reason string
}

// Evaluate applies the staleness policy to a single target.
//
// Outputs, filePrereqs and depOutputs must already be variable-expanded.
// depOutputs are the effective outputs of the target's prerequisite
// targets; depRebuilt reports whether any of those prerequisites was
// rebuilt earlier in the current run, which forces staleness regardless
// of timestamps (the rebuild may not be reflected on disk in a dry run,
// and timestamps alone cannot order same-second writes).
func Evaluate(t *config.Target, outputs, filePrereqs, depOutputs []string, depRebuilt bool) (Decision, error) {
	if t.Phony {
		return Decision{Stale: true, Reason: "phony target"}, nil
	}
	if t.Always {
		return Decision{Stale: true, Reason: "always rebuild requested"}, nil
	}
	if len(outputs) == 0 {
		return Decision{Stale: true, Reason: "no declared outputs"}, nil
	}
	if depRebuilt {
		return Decision{Stale: true, Reason: "a prerequisite target was rebuilt"}, nil
	}

	// Oldest output versus newest input.
	var oldestOut time.Time
	for _, out := range outputs {
		info, err := os.Stat(out)
		if err != nil {
			if os.IsNotExist(err) {
				return Decision{Stale: true, Reason: fmt.Sprintf("output '%s' is missing", out)}, nil
			}
			return Decision{}, fmt.Errorf("stat output '%s' of target '%s': %w", out, t.Name, err)
		}
		if oldestOut.IsZero() || info.ModTime().Before(oldestOut) {
			oldestOut = info.ModTime()
		}
	}

	for _, in := range filePrereqs {
		info, err := os.Stat(in)
		if err != nil {
			if os.IsNotExist(err) {
				// A file prerequisite produced by no target must exist
				// by the time staleness is evaluated.
				return Decision{}, &dag.UnknownTargetError{Name: in, Referrer: t.Name}
			}
			return Decision{}, fmt.Errorf("stat prerequisite '%s' of target '%s': %w", in, t.Name, err)
		}
		if info.ModTime().After(oldestOut) {
			return Decision{Stale: true, Reason: fmt.Sprintf("prerequisite '%s' is newer than '%s'", in, outputs[0])}, nil
		}
	}

	for _, in := range depOutputs {
		info, err := os.Stat(in)
		if err != nil {
			if os.IsNotExist(err) {
				// The prerequisite target was up to date, yet one of its
				// outputs is gone. Rebuild conservatively.
				return Decision{Stale: true, Reason: fmt.Sprintf("prerequisite output '%s' is missing", in)}, nil
			}
			return Decision{}, fmt.Errorf("stat prerequisite output '%s' of target '%s': %w", in, t.Name, err)
		}
		if info.ModTime().After(oldestOut) {
			return Decision{Stale: true, Reason: fmt.Sprintf("prerequisite output '%s' is newer than '%s'", in, outputs[0])}, nil
		}
	}

	return Decision{Stale: false, Reason: "outputs up to date"}, nil
}
