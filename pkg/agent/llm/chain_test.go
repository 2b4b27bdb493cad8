package llm

import (
	"context"
	"testing"
)

// TestWrapClient tests the WrapClient helper function.
func TestWrapClient(t *testing.T) {
	completeCalled := false

	client := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			completeCalled = true
			return CompletionResponse{Content: "wrapped"}, nil
		},
		func() string { return "wrapped-model" },
	)

	resp, err := client.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("test")}))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !completeCalled {
		t.Error("Complete function was not called")
	}
	if resp.Content != "wrapped" {
		t.Errorf("expected 'wrapped', got %q", resp.Content)
	}
	if got := client.GetModelName(); got != "wrapped-model" {
		t.Errorf("expected 'wrapped-model', got %q", got)
	}
}

// TestChainOrder verifies the first middleware is outermost.
func TestChainOrder(t *testing.T) {
	var order []string

	base := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			order = append(order, "base")
			return CompletionResponse{}, nil
		},
		func() string { return "base" },
	)

	mw := func(name string) Middleware {
		return func(next LLMClient) LLMClient {
			return WrapClient(
				func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
					order = append(order, name)
					return next.Complete(ctx, req)
				},
				next.GetModelName,
			)
		}
	}

	client := Chain(base, mw("first"), mw("second"))
	if _, err := client.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first", "second", "base"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], order[i])
		}
	}
	if client.GetModelName() != "base" {
		t.Errorf("model name should delegate to base")
	}
}

// TestChainNoMiddleware returns the base client unchanged.
func TestChainNoMiddleware(t *testing.T) {
	base := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			return CompletionResponse{Content: "x"}, nil
		},
		func() string { return "m" },
	)
	resp, err := Chain(base).Complete(context.Background(), CompletionRequest{})
	if err != nil || resp.Content != "x" {
		t.Errorf("unexpected result %q, %v", resp.Content, err)
	}
}
