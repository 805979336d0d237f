package assistant

import (
	"errors"
	"fmt"
)

var (
	// ErrRunTimeout means the poll budget was exhausted before the run
	// reached a terminal state. The run may still finish upstream; we just
	// stop waiting for it.
	ErrRunTimeout = errors.New("assistant run timed out")

	// ErrNoAssistantMessage means a completed run produced no assistant
	// message we could match to it.
	ErrNoAssistantMessage = errors.New("no assistant response found for completed run")
)

// RunFailedError carries the upstream detail of a failed or cancelled run.
type RunFailedError struct {
	Status string
	Detail string
}

func (e *RunFailedError) Error() string {
	if len(e.Detail) == 0 {
		return fmt.Sprintf("assistant run ended with status %s", e.Status)
	}
	return fmt.Sprintf("assistant run ended with status %s: %s", e.Status, e.Detail)
}
