package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/agent/llmerrors"
	"eolmatch/pkg/logx"
	"eolmatch/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor is a function that extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor estimates usage with TikToken over message text, tool calls and tool results.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var prompt strings.Builder
	for i := range req.Messages {
		msg := &req.Messages[i]
		prompt.WriteString(msg.Content)
		prompt.WriteByte('\n')
		for j := range msg.ToolResults {
			prompt.WriteString(msg.ToolResults[j].Content)
			prompt.WriteByte('\n')
		}
		writeCalls(&prompt, msg.ToolCalls)
	}
	promptTokens = utils.CountTokensSimple(prompt.String())

	var completion strings.Builder
	completion.WriteString(resp.Content)
	writeCalls(&completion, resp.ToolCalls)
	completionTokens = utils.CountTokensSimple(completion.String())

	return promptTokens, completionTokens
}

func writeCalls(b *strings.Builder, calls []llm.ToolCall) {
	for i := range calls {
		b.WriteString(calls[i].Name)
		if data, err := json.Marshal(calls[i].Parameters); err == nil {
			b.Write(data)
		}
		b.WriteByte('\n')
	}
}

// Middleware returns a middleware function that records metrics for LLM operations.
// The run ID label is read from the request context (logx.WithRunID).
func Middleware(recorder Recorder, usageExtractor UsageExtractor, mode string, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				model := next.GetModelName()

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				errorType := ""
				if err != nil {
					errorType = getErrorType(err)
				}

				runID := logx.RunID(ctx)
				recorder.ObserveRequest(model, runID, mode, promptTokens, completionTokens, err == nil, errorType, duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Info("🎯 LLM Request: model=%s run=%s mode=%s tokens=%d+%d=%d status=%s duration=%dms",
						model, runID, mode, promptTokens, completionTokens, promptTokens+completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

// getErrorType classifies errors for metrics labeling.
func getErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.Type.String()
	}
	return "unknown"
}
