package dag

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle among targets. Path lists the
// members in dependency order, ending with the repeated target.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// UnknownTargetError reports a reference that resolves to neither a
// declared target nor an existing file. Referrer is the target whose
// prerequisite list contains the reference; it is empty when the name
// came from the command line.
type UnknownTargetError struct {
	Name     string
	Referrer string
}

func (e *UnknownTargetError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("unknown target '%s'", e.Name)
	}
	return fmt.Sprintf("prerequisite '%s' of target '%s' is neither a declared target nor an existing file", e.Name, e.Referrer)
}
