package retry

import (
	"context"
	"fmt"

	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/agent/llmerrors"
	"eolmatch/pkg/logx"
)

// Middleware returns a middleware function that wraps an LLM client with retry logic.
// Exhausting the attempts on a retryable error yields a ServiceUnavailable error.
func Middleware(policy *Policy, logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm-retry")
	}
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var lastErr error

				for attempt := 0; attempt < policy.Config.MaxAttempts; attempt++ {
					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}
					lastErr = err

					if !policy.ShouldRetry(err) {
						return llm.CompletionResponse{}, err //nolint:wrapcheck // pass through unchanged
					}
					if attempt == policy.Config.MaxAttempts-1 {
						break
					}

					delay := policy.CalculateDelay(attempt)
					logger.Warn("🔁 LLM call failed (attempt %d/%d): %v; retrying in %s",
						attempt+1, policy.Config.MaxAttempts, err, delay)
					if sleepErr := policy.Sleeper.Sleep(ctx, delay); sleepErr != nil {
						return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", sleepErr)
					}
				}

				return llm.CompletionResponse{}, llmerrors.NewServiceUnavailableError(lastErr, policy.Config.MaxAttempts)
			},
			next.GetModelName,
		)
	}
}
