package vars

import (
	"fmt"
	"strings"
)

// UndefinedVariableError reports a ${NAME} reference with no definition
// in any layer of the scope.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable '%s'", e.Name)
}

// CyclicVariableError reports a variable whose expansion transitively
// references itself. Chain lists the names in reference order, ending
// with the repeated one.
type CyclicVariableError struct {
	Chain []string
}

func (e *CyclicVariableError) Error() string {
	return fmt.Sprintf("cyclic variable reference: %s", strings.Join(e.Chain, " -> "))
}
