package engine

import (
	"fmt"

	"github.com/formpilot/formpilot-cli/api/schemas"
)

// StepError wraps a failure in a single plan step with enough context to
// report it without re-deriving the plan position.
type StepError struct {
	Index    int
	Action   schemas.Action
	Selector string
	Err      error
}

func (e *StepError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("step %d (%s %q): %v", e.Index, e.Action, e.Selector, e.Err)
	}
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
