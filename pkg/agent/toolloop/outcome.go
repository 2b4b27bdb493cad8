package toolloop

import (
	"fmt"

	"eolmatch/pkg/contextmgr"
)

// OutcomeKind categorizes the result of a toolloop execution.
type OutcomeKind int

const (
	// OutcomeComplete indicates the model finished and its answer was extracted into Value.
	OutcomeComplete OutcomeKind = iota

	// OutcomeIterationLimit indicates MaxIterations turns passed without a final answer.
	OutcomeIterationLimit

	// OutcomeCancelled indicates the context was cancelled between iterations.
	OutcomeCancelled

	// OutcomeLLMError indicates the completion call itself failed.
	// Err field contains the underlying error from the LLM client.
	OutcomeLLMError

	// OutcomeUnexpectedStop indicates the response ended for a reason other than
	// end_turn or tool_use (for example max_tokens).
	OutcomeUnexpectedStop

	// OutcomeExtractionError indicates the model finished but its text could not be parsed.
	// RawText holds the text verbatim.
	OutcomeExtractionError

	// OutcomeInvalidConfig indicates Run was misconfigured and never called the model.
	OutcomeInvalidConfig
)

// String returns human-readable name for OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeComplete:
		return "Complete"
	case OutcomeIterationLimit:
		return "IterationLimit"
	case OutcomeCancelled:
		return "Cancelled"
	case OutcomeLLMError:
		return "LLMError"
	case OutcomeUnexpectedStop:
		return "UnexpectedStop"
	case OutcomeExtractionError:
		return "ExtractionError"
	case OutcomeInvalidConfig:
		return "InvalidConfig"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", k)
	}
}

// Status is the terminal state reported to callers.
type Status string

// Terminal states.
const (
	StatusComplete   Status = "COMPLETE"
	StatusIncomplete Status = "INCOMPLETE"
	StatusError      Status = "ERROR"
)

// Status collapses the kind into one of the three terminal states.
// A cancelled run is INCOMPLETE: whatever it gathered is kept.
func (k OutcomeKind) Status() Status {
	switch k {
	case OutcomeComplete:
		return StatusComplete
	case OutcomeIterationLimit, OutcomeCancelled:
		return StatusIncomplete
	default:
		return StatusError
	}
}

// ToolCallRecord is one executed tool call. Records are never modified after creation.
//
//nolint:govet // Field order optimized for readability over memory alignment
type ToolCallRecord struct {
	Iteration int
	CallID    string
	ToolName  string
	Arguments map[string]any
	Payload   any    // structured result returned by the tool
	Content   string // JSON rendering of Payload as sent to the model
	IsError   bool
}

// Outcome represents the result of a toolloop execution with typed result extraction.
//
//nolint:govet // Field order optimized for readability over memory alignment
type Outcome[T any] struct {
	// Kind categorizes what happened during the loop.
	Kind OutcomeKind

	// Value is the extracted result. Only valid when Kind == OutcomeComplete.
	Value T

	// Err is the underlying error (non-nil for all non-Complete outcomes).
	Err error

	// Iteration is the 1-indexed iteration at which the outcome occurred.
	Iteration int

	// RawText is the last text produced by the model, kept for diagnostics.
	RawText string

	// StopReason is the stop reason of the last response.
	StopReason string

	// ToolCalls lists every tool call executed, in order.
	ToolCalls []ToolCallRecord

	// Transcript is the conversation as it stood when the loop ended.
	Transcript *contextmgr.Transcript
}

// Status returns the terminal state of the outcome.
func (o *Outcome[T]) Status() Status {
	return o.Kind.Status()
}
