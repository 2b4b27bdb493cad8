package matcher

import (
	"context"
	"fmt"
	"time"

	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/agent/toolloop"
	"eolmatch/pkg/config"
	"eolmatch/pkg/contextmgr"
	"eolmatch/pkg/logx"
)

// Options tune a matching run.
type Options struct {
	ConfidenceThreshold float64
	MaxIterations       int
	MaxTokens           int
	Temperature         float64
	InterCallDelay      time.Duration
	DebugLogging        bool
}

// RunResult is what a mode hands back to the pipeline.
//
//nolint:govet // Field order optimized for readability over memory alignment
type RunResult struct {
	Mode       string
	Status     toolloop.Status
	Records    []MatchRecord
	Iterations int
	ToolCalls  []toolloop.ToolCallRecord
	// RawText is the last model text, kept so ERROR and INCOMPLETE runs can be inspected.
	RawText    string
	Err        error
	Transcript *contextmgr.Transcript
}

// Diagnostic summarizes why a run did not complete. Empty for COMPLETE runs.
func (r *RunResult) Diagnostic() string {
	if r.Status == toolloop.StatusComplete {
		return ""
	}
	msg := ""
	if r.Err != nil {
		msg = r.Err.Error()
	}
	if r.RawText != "" {
		if msg != "" {
			msg += "\n\n"
		}
		msg += r.RawText
	}
	return msg
}

// Runner matches a list of inputs.
type Runner interface {
	Run(ctx context.Context, inputs []string) RunResult
}

// Agentic lets the model drive the tools and return all matches at once.
type Agentic struct {
	client llm.LLMClient
	tools  toolloop.ToolExecutor
	opts   Options
	logger *logx.Logger
}

// NewAgentic creates the agentic runner.
func NewAgentic(client llm.LLMClient, executor toolloop.ToolExecutor, opts Options, logger *logx.Logger) *Agentic {
	if logger == nil {
		logger = logx.NewLogger("agentic")
	}
	return &Agentic{client: client, tools: executor, opts: opts, logger: logger}
}

// Run drives one bounded conversation covering every input.
func (a *Agentic) Run(ctx context.Context, inputs []string) RunResult {
	transcript := contextmgr.NewTranscript()
	transcript.AddSystem(SystemPrompt(a.opts.ConfidenceThreshold))
	transcript.AddUser(UserPrompt(inputs, a.opts.ConfidenceThreshold))

	a.logger.Info("Starting agentic loop for %d datastores", len(inputs))

	loop := toolloop.New(a.client, a.logger.WithComponent("toolloop"))
	out := toolloop.Run(loop, ctx, &toolloop.Config[[]MatchRecord]{
		Transcript:    transcript,
		Tools:         a.tools,
		Extract:       a.parseRecords,
		MaxIterations: a.opts.MaxIterations,
		MaxTokens:     a.opts.MaxTokens,
		Temperature:   float32(a.opts.Temperature),
		DebugLogging:  a.opts.DebugLogging,
	})

	result := RunResult{
		Mode:       config.ModeAgentic,
		Status:     out.Status(),
		Records:    out.Value,
		Iterations: out.Iteration,
		ToolCalls:  out.ToolCalls,
		RawText:    out.RawText,
		Err:        out.Err,
		Transcript: out.Transcript,
	}
	if result.Status == toolloop.StatusComplete {
		a.logger.Info("Agentic loop completed after %d iterations with %d results", out.Iteration, len(out.Value))
		if missing := missingInputs(inputs, out.Value); len(missing) > 0 {
			a.logger.Warn("Model returned no result for %d inputs: %v", len(missing), missing)
		}
	} else {
		a.logger.Warn("Agentic loop ended %s (%s) at iteration %d: %v", result.Status, out.Kind, out.Iteration, out.Err)
	}
	return result
}

func (a *Agentic) parseRecords(text string) ([]MatchRecord, error) {
	return ParseRecords(text, a.logger)
}

func missingInputs(inputs []string, records []MatchRecord) []string {
	seen := make(map[string]bool, len(records))
	for i := range records {
		seen[records[i].InputName] = true
	}
	var missing []string
	for _, in := range inputs {
		if !seen[in] {
			missing = append(missing, in)
		}
	}
	return missing
}

// String renders a short status line.
func (r *RunResult) String() string {
	return fmt.Sprintf("%s run %s: %d records, %d iterations, %d tool calls", r.Mode, r.Status, len(r.Records), r.Iterations, len(r.ToolCalls))
}
