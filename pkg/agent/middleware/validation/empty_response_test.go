package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/agent/llmerrors"
)

func sequence(responses ...llm.CompletionResponse) (llm.LLMClient, *[]llm.CompletionRequest) {
	var seen []llm.CompletionRequest
	client := llm.WrapClient(
		func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
			seen = append(seen, req)
			return responses[len(seen)-1], nil
		},
		func() string { return "seq" },
	)
	return client, &seen
}

func TestEmptyResponseRetriedWithGuidance(t *testing.T) {
	base, seen := sequence(
		llm.CompletionResponse{StopReason: llm.StopEndTurn},
		llm.CompletionResponse{Content: "[]", StopReason: llm.StopEndTurn},
	)
	client := NewEmptyResponseValidator(nil).Middleware()(base)

	req := llm.CompletionRequest{Messages: []llm.CompletionMessage{llm.NewUserMessage("match these")}}
	resp, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Content)

	require.Len(t, *seen, 2)
	assert.Len(t, (*seen)[0].Messages, 1)
	require.Len(t, (*seen)[1].Messages, 2)
	assert.Equal(t, guidanceMessage, (*seen)[1].Messages[1].Content)
	assert.Len(t, req.Messages, 1, "caller's request must not be mutated")
}

func TestEmptyResponseTwiceIsError(t *testing.T) {
	base, _ := sequence(llm.CompletionResponse{}, llm.CompletionResponse{Content: "  "})
	_, err := NewEmptyResponseValidator(nil).Middleware()(base).Complete(context.Background(), llm.CompletionRequest{})

	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse))
}

func TestToolCallsAreNotEmpty(t *testing.T) {
	base, seen := sequence(llm.CompletionResponse{
		StopReason: llm.StopToolUse,
		ToolCalls:  []llm.ToolCall{{ID: "1", Name: "get_reference_list"}},
	})
	resp, err := NewEmptyResponseValidator(nil).Middleware()(base).Complete(context.Background(), llm.CompletionRequest{})

	require.NoError(t, err)
	assert.Len(t, resp.ToolCalls, 1)
	assert.Len(t, *seen, 1)
}
