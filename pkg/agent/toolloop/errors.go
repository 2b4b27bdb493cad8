package toolloop

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResult indicates the model's final text could not be turned into a result.
	ErrInvalidResult = errors.New("invalid final answer")

	// ErrGracefulShutdown indicates the loop was interrupted by context cancellation.
	// Results gathered before the interruption remain on the Outcome.
	ErrGracefulShutdown = errors.New("graceful shutdown requested")

	// ErrInvalidConfig indicates Run was called without a required collaborator.
	ErrInvalidConfig = errors.New("invalid toolloop config")
)

// IterationLimitError is returned when the model keeps requesting tools past the budget.
type IterationLimitError struct {
	Limit     int
	Iteration int
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("iteration limit (%d) reached at iteration %d", e.Limit, e.Iteration)
}

// UnexpectedStopError is returned when a response is neither a final answer nor a tool request.
type UnexpectedStopError struct {
	StopReason string
}

func (e *UnexpectedStopError) Error() string {
	return fmt.Sprintf("unexpected stop reason %q", e.StopReason)
}
