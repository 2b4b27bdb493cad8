// Package toolloop drives a bounded conversation in which the model may call
// tools before producing its final answer.
package toolloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/contextmgr"
	"eolmatch/pkg/logx"
	"eolmatch/pkg/tools"
)

// DefaultMaxIterations bounds a run when Config.MaxIterations is unset.
const DefaultMaxIterations = 20

const debugDomain = "toolloop"

// ToolExecutor is what the loop needs from a tool registry.
type ToolExecutor interface {
	Definitions() []tools.ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) tools.Result
}

// ToolLoop manages LLM interactions with tool calling.
type ToolLoop struct {
	llmClient llm.LLMClient
	logger    *logx.Logger
}

// New creates a new ToolLoop instance.
func New(llmClient llm.LLMClient, logger *logx.Logger) *ToolLoop {
	if logger == nil {
		logger = logx.NewLogger("toolloop")
	}
	return &ToolLoop{
		llmClient: llmClient,
		logger:    logger,
	}
}

// Config defines how the tool loop behaves.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Config[T any] struct {
	// Transcript is owned by the caller and must already hold the system
	// instruction and the initial user turn.
	Transcript *contextmgr.Transcript

	// Tools executes the calls the model requests.
	Tools ToolExecutor

	// Extract turns the model's final text into a result. An error yields
	// OutcomeExtractionError with the text preserved.
	Extract func(text string) (T, error)

	// OnToolCall, if set, is called after each tool execution.
	OnToolCall func(rec ToolCallRecord)

	// MaxIterations bounds the number of completion calls.
	MaxIterations int

	// MaxTokens per completion request.
	MaxTokens int

	// Temperature per completion request.
	Temperature float32

	// ToolChoice is passed through to the provider ("", "auto", "any").
	ToolChoice string

	// DebugLogging logs every message sent to the model.
	DebugLogging bool
}

// Run executes the loop until the model answers, the budget runs out, the
// context is cancelled, or the completion service fails.
// Tool failures never end the loop; they are fed back to the model as data.
//
//nolint:gocritic // ctx second to keep the loop as receiver-like first argument
func Run[T any](tl *ToolLoop, ctx context.Context, cfg *Config[T]) Outcome[T] {
	var out Outcome[T]

	if cfg == nil || cfg.Transcript == nil || cfg.Tools == nil || cfg.Extract == nil {
		out.Kind = OutcomeInvalidConfig
		out.Err = fmt.Errorf("%w: Transcript, Tools and Extract are required", ErrInvalidConfig)
		return out
	}
	out.Transcript = cfg.Transcript

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	toolDefs := cfg.Tools.Definitions()

	for iteration := 1; iteration <= maxIterations; iteration++ {
		out.Iteration = iteration

		if err := ctx.Err(); err != nil {
			tl.logger.Warn("Run interrupted before iteration %d: %v", iteration, err)
			out.Kind = OutcomeCancelled
			out.Err = fmt.Errorf("%w: %w", ErrGracefulShutdown, err)
			return out
		}

		messages := buildMessages(cfg.Transcript)
		req := llm.CompletionRequest{
			Messages:    messages,
			Tools:       toolDefs,
			ToolChoice:  cfg.ToolChoice,
			MaxTokens:   maxTokens,
			Temperature: cfg.Temperature,
		}

		tl.logger.Info("🔄 Starting LLM call to model '%s' with %d messages, %d tools (iteration %d/%d)",
			tl.llmClient.GetModelName(), len(messages), len(toolDefs), iteration, maxIterations)
		if cfg.DebugLogging {
			tl.logMessages(messages)
		}
		logx.Debug(ctx, debugDomain, "transcript: %s", cfg.Transcript.Summary())

		start := time.Now()
		resp, err := tl.llmClient.Complete(ctx, req)
		duration := time.Since(start)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				tl.logger.Warn("LLM call interrupted after %.3gs: %v", duration.Seconds(), ctxErr)
				out.Kind = OutcomeCancelled
				out.Err = fmt.Errorf("%w: %w", ErrGracefulShutdown, ctxErr)
				return out
			}
			tl.logger.Error("❌ LLM call failed after %.3gs: %v", duration.Seconds(), err)
			out.Kind = OutcomeLLMError
			out.Err = fmt.Errorf("LLM completion failed: %w", err)
			return out
		}

		tl.logger.Info("✅ LLM call completed in %.3gs, stop reason: %s, response length: %d chars, tool calls: %d",
			duration.Seconds(), resp.StopReason, len(resp.Content), len(resp.ToolCalls))

		out.StopReason = resp.StopReason
		if resp.Content != "" {
			out.RawText = resp.Content
		}
		cfg.Transcript.AddAssistant(resp.Content, toTranscriptCalls(resp.ToolCalls))

		switch turn := llm.Classify(resp).(type) {
		case llm.FinalText:
			out.RawText = turn.Text
			value, err := cfg.Extract(turn.Text)
			if err != nil {
				tl.logger.Error("Final answer could not be extracted: %v", err)
				out.Kind = OutcomeExtractionError
				if errors.Is(err, ErrInvalidResult) {
					out.Err = err
				} else {
					out.Err = fmt.Errorf("%w: %w", ErrInvalidResult, err)
				}
				return out
			}
			out.Kind = OutcomeComplete
			out.Value = value
			return out

		case llm.ToolRequests:
			tl.logger.Info("Processing %d tool calls", len(turn.Calls))
			results := make([]contextmgr.ToolResult, 0, len(turn.Calls))
			for i := range turn.Calls {
				rec := tl.executeTool(ctx, cfg.Tools, iteration, &turn.Calls[i])
				out.ToolCalls = append(out.ToolCalls, rec)
				if cfg.OnToolCall != nil {
					cfg.OnToolCall(rec)
				}
				results = append(results, contextmgr.ToolResult{
					ToolCallID: rec.CallID,
					ToolName:   rec.ToolName,
					Content:    rec.Content,
					IsError:    rec.IsError,
				})
			}
			cfg.Transcript.AddToolResults(results)
			tl.logger.Info("🔄 Tools executed, continuing iteration")

		case llm.Unexpected:
			tl.logger.Error("Model stopped unexpectedly: %s", turn.StopReason)
			out.Kind = OutcomeUnexpectedStop
			out.Err = &UnexpectedStopError{StopReason: turn.StopReason}
			return out
		}
	}

	tl.logger.Warn("⚠️  Maximum tool iterations (%d) reached", maxIterations)
	out.Kind = OutcomeIterationLimit
	out.Err = &IterationLimitError{Limit: maxIterations, Iteration: out.Iteration}
	return out
}

// executeTool runs one call. The registry never fails, so neither does this.
func (tl *ToolLoop) executeTool(ctx context.Context, executor ToolExecutor, iteration int, call *llm.ToolCall) ToolCallRecord {
	tl.logger.Info("Executing tool: %s", call.Name)

	start := time.Now()
	res := executor.Execute(ctx, call.Name, call.Parameters)
	duration := time.Since(start)

	if res.IsError {
		tl.logger.Warn("Tool %s returned an error payload after %.3fs", call.Name, duration.Seconds())
	} else {
		tl.logger.Info("Tool %s completed in %.3fs", call.Name, duration.Seconds())
	}

	return ToolCallRecord{
		Iteration: iteration,
		CallID:    call.ID,
		ToolName:  call.Name,
		Arguments: call.Parameters,
		Payload:   res.Payload,
		Content:   res.Content,
		IsError:   res.IsError,
	}
}

func toTranscriptCalls(calls []llm.ToolCall) []contextmgr.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]contextmgr.ToolCall, len(calls))
	for i := range calls {
		out[i] = contextmgr.ToolCall{
			ID:         calls[i].ID,
			Name:       calls[i].Name,
			Parameters: calls[i].Parameters,
		}
	}
	return out
}

// buildMessages converts transcript turns to llm.CompletionMessage format.
func buildMessages(t *contextmgr.Transcript) []llm.CompletionMessage {
	turns := t.Messages()

	messages := make([]llm.CompletionMessage, 0, len(turns))
	for i := range turns {
		msg := &turns[i]

		var calls []llm.ToolCall
		if len(msg.ToolCalls) > 0 {
			calls = make([]llm.ToolCall, len(msg.ToolCalls))
			for j := range msg.ToolCalls {
				calls[j] = llm.ToolCall{
					ID:         msg.ToolCalls[j].ID,
					Name:       msg.ToolCalls[j].Name,
					Parameters: msg.ToolCalls[j].Parameters,
				}
			}
		}

		var results []llm.ToolResult
		if len(msg.ToolResults) > 0 {
			results = make([]llm.ToolResult, len(msg.ToolResults))
			for j := range msg.ToolResults {
				results[j] = llm.ToolResult{
					ToolCallID: msg.ToolResults[j].ToolCallID,
					ToolName:   msg.ToolResults[j].ToolName,
					Content:    msg.ToolResults[j].Content,
					IsError:    msg.ToolResults[j].IsError,
				}
			}
		}

		messages = append(messages, llm.CompletionMessage{
			Role:        llm.CompletionRole(msg.Role),
			Content:     msg.Content,
			ToolCalls:   calls,
			ToolResults: results,
		})
	}

	return messages
}

// logMessages logs detailed message information for debugging.
func (tl *ToolLoop) logMessages(messages []llm.CompletionMessage) {
	tl.logger.Info("📝 DEBUG - Messages sent to LLM:")
	for i := range messages {
		msg := &messages[i]
		contentPreview := msg.Content
		if len(contentPreview) > 100 {
			contentPreview = contentPreview[:100] + "..."
		}

		toolInfo := ""
		if len(msg.ToolCalls) > 0 {
			toolInfo = fmt.Sprintf(", ToolCalls: %d", len(msg.ToolCalls))
		}
		if len(msg.ToolResults) > 0 {
			toolInfo += fmt.Sprintf(", ToolResults: %d", len(msg.ToolResults))
		}

		tl.logger.Info("  [%d] Role: %s, Content: %q%s", i, msg.Role, contentPreview, toolInfo)

		for j := range msg.ToolCalls {
			tc := &msg.ToolCalls[j]
			tl.logger.Info("    ToolCall[%d] ID=%s Name=%s Params=%v", j, tc.ID, tc.Name, tc.Parameters)
		}
		for j := range msg.ToolResults {
			tr := &msg.ToolResults[j]
			resultPreview := tr.Content
			if len(resultPreview) > 200 {
				resultPreview = resultPreview[:200] + "..."
			}
			tl.logger.Info("    ToolResult[%d] ID=%s IsError=%v Content=%q", j, tr.ToolCallID, tr.IsError, resultPreview)
		}
	}
}
