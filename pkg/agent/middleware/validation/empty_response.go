// Package validation provides response validation middleware for LLM clients.
package validation

import (
	"context"
	"strings"

	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/agent/llmerrors"
	"eolmatch/pkg/logx"
)

// guidanceMessage is appended once after an empty answer.
const guidanceMessage = "Your previous response was empty. Either call one of the available tools " +
	"or reply with the final JSON array of match results."

// EmptyResponseValidator rejects completions with neither text nor tool calls.
type EmptyResponseValidator struct {
	logger *logx.Logger
}

// NewEmptyResponseValidator creates a validator.
func NewEmptyResponseValidator(logger *logx.Logger) *EmptyResponseValidator {
	if logger == nil {
		logger = logx.NewLogger("empty-response-validator")
	}
	return &EmptyResponseValidator{logger: logger}
}

// Middleware retries an empty response once with a guidance message appended,
// then returns ErrorTypeEmptyResponse so the retry layer can take over.
func (v *EmptyResponseValidator) Middleware() llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				const maxEmptyAttempts = 2

				for attempt := 1; attempt <= maxEmptyAttempts; attempt++ {
					resp, err := next.Complete(ctx, req)
					if err != nil {
						return resp, err //nolint:wrapcheck // pass through unchanged
					}
					if !isEmpty(resp) {
						return resp, nil
					}

					v.logger.Warn("⚠️ Empty response from %s (attempt %d/%d, stop_reason=%q)",
						next.GetModelName(), attempt, maxEmptyAttempts, resp.StopReason)
					if attempt == 1 {
						retryReq := req
						retryReq.Messages = append(append([]llm.CompletionMessage(nil), req.Messages...),
							llm.NewUserMessage(guidanceMessage))
						req = retryReq
					}
				}

				return llm.CompletionResponse{}, llmerrors.NewError(
					llmerrors.ErrorTypeEmptyResponse,
					"received empty response after guidance: no content or tool calls",
				)
			},
			next.GetModelName,
		)
	}
}

func isEmpty(resp llm.CompletionResponse) bool {
	return len(resp.ToolCalls) == 0 && strings.TrimSpace(resp.Content) == ""
}
