package carbon

import (
	"fmt"
	"strings"
)

// MissingInputError reports a computation invoked without a required input.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("carbon: missing required input %q", e.Field)
}

// ValidationError carries the full list of range violations found in an
// input set. Callers correct the input and retry.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "carbon: invalid input: " + strings.Join(e.Violations, "; ")
}
