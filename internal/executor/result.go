package executor

import "time"

// Outcome classifies what happened to one target during a run.
type Outcome int

const (
	// Skipped means the target was up to date and its action did not run.
	Skipped Outcome = iota
	// Rebuilt means the target was stale and its action completed.
	Rebuilt
	// WouldBuild means the target was stale during a dry run; its
	// commands were printed, not executed.
	WouldBuild
	// Failed means the target's action failed, or an upstream failure
	// prevented it from running.
	Failed
)

// String returns the lower-case name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Rebuilt:
		return "rebuilt"
	case WouldBuild:
		return "would-build"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is the per-target record of one run.
type Result struct {
	// Target is the target's name.
	Target string
	// Outcome classifies what happened.
	Outcome Outcome
	// Reason explains the staleness decision or the failure.
	Reason string
	// Output is the combined stdout/stderr of the target's commands.
	Output string
	// ExitCode is the exit status of the last command that ran.
	// Zero unless the target actually executed something.
	ExitCode int
	// Duration covers the staleness check and any command execution.
	Duration time.Duration
	// Err is the failure, if any.
	Err error
}
