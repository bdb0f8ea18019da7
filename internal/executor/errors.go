package executor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSkippedUpstream marks nodes that never ran because a prerequisite
// failed. It classifies symptoms so the run's reported root cause is
// the target that actually broke.
var ErrSkippedUpstream = errors.New("skipped due to upstream failure")

// ProcessError reports a failed external-process invocation: a nonzero
// exit, a spawn failure, or an exceeded timeout.
type ProcessError struct {
	Target   string
	Command  string
	ExitCode int
	// Output holds the tail of the command's combined output.
	Output string
	// Timeout is set when the invocation was cut off by its deadline.
	Timeout bool
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	if e.Timeout {
		fmt.Fprintf(&b, "target '%s': command timed out: %s", e.Target, e.Command)
	} else {
		fmt.Fprintf(&b, "target '%s': command failed with exit code %d: %s", e.Target, e.ExitCode, e.Command)
	}
	if e.Output != "" {
		fmt.Fprintf(&b, "\n%s", e.Output)
	}
	return b.String()
}
