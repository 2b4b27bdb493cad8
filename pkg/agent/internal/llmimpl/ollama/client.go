// Package ollama provides Ollama client implementation for LLM interface.
// Ollama is a local LLM runtime that allows running open-source models.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/agent/llmerrors"
	"eolmatch/pkg/config"
	"eolmatch/pkg/tools"
)

// DefaultHost is used when the configured host URL is empty or invalid.
const DefaultHost = "http://localhost:11434"

// Client wraps the Ollama API client to implement llm.LLMClient interface.
type Client struct {
	client  *api.Client
	model   string
	hostURL string
}

// NewOllamaClientWithModel creates a new Ollama client with specific model.
// hostURL should be the Ollama server URL (e.g., "http://localhost:11434").
func NewOllamaClientWithModel(hostURL, model string, httpClient *http.Client) llm.LLMClient {
	if model == "" {
		model = config.ModelOllama
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	parsedURL, err := url.Parse(hostURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		parsedURL, _ = url.Parse(DefaultHost)
	}

	return &Client{
		client:  api.NewClient(parsedURL, httpClient),
		model:   model,
		hostURL: parsedURL.String(),
	}
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages, err := convertMessagesToOllama(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": maxTokens,
		},
	}

	if len(in.Tools) > 0 {
		if req.Tools, err = convertToolsToOllama(in.Tools); err != nil {
			return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("tool conversion error: %v", err))
		}
	}

	var response api.ChatResponse
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	result := llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: getStopReason(&response),
	}
	if len(response.Message.ToolCalls) > 0 {
		result.ToolCalls = convertToolCallsFromOllama(response.Message.ToolCalls)
		result.StopReason = llm.StopToolUse
	}
	return result, nil
}

// GetModelName returns the model name for this client.
func (o *Client) GetModelName() string {
	return o.model
}

// wireToolCall mirrors the JSON shape of api.ToolCall.
type wireToolCall struct {
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

// convertMessagesToOllama converts our message format to Ollama's Message format.
// Tool results become separate role=tool messages.
func convertMessagesToOllama(messages []llm.CompletionMessage) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	result := make([]api.Message, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		ollamaMsg := api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		if len(msg.ToolCalls) > 0 {
			calls := make([]wireToolCall, len(msg.ToolCalls))
			for j := range msg.ToolCalls {
				calls[j].ID = msg.ToolCalls[j].ID
				calls[j].Function.Name = msg.ToolCalls[j].Name
				calls[j].Function.Arguments = msg.ToolCalls[j].Parameters
			}
			if err := remarshal(calls, &ollamaMsg.ToolCalls); err != nil {
				return nil, fmt.Errorf("tool calls at index %d: %w", i, err)
			}
		}

		if len(msg.ToolResults) > 0 {
			for j := range msg.ToolResults {
				tr := &msg.ToolResults[j]
				result = append(result, api.Message{
					Role:       "tool",
					Content:    tr.Content,
					ToolCallID: tr.ToolCallID,
				})
			}
			if msg.Content == "" {
				continue
			}
		}

		result = append(result, ollamaMsg)
	}
	return result, nil
}

// convertToolsToOllama converts our tool definitions to Ollama's function tool format.
func convertToolsToOllama(toolDefs []tools.ToolDefinition) (api.Tools, error) {
	wire := make([]map[string]any, len(toolDefs))
	for i := range toolDefs {
		td := &toolDefs[i]
		schemaType := td.InputSchema.Type
		if schemaType == "" {
			schemaType = "object"
		}
		wire[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        td.Name,
				"description": td.Description,
				"parameters": map[string]any{
					"type":       schemaType,
					"properties": td.InputSchema.Properties,
					"required":   td.InputSchema.Required,
				},
			},
		}
	}
	var out api.Tools
	if err := remarshal(wire, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// convertToolCallsFromOllama extracts tool calls from Ollama response.
func convertToolCallsFromOllama(calls []api.ToolCall) []llm.ToolCall {
	var wire []wireToolCall
	if err := remarshal(calls, &wire); err != nil {
		return nil
	}

	result := make([]llm.ToolCall, len(wire))
	for i := range wire {
		id := wire[i].ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		args := wire[i].Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		result[i] = llm.ToolCall{ID: id, Name: wire[i].Function.Name, Parameters: args}
	}
	return result
}

// remarshal converts between our types and the api package's via JSON.
func remarshal(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

// getStopReason converts Ollama's done_reason to our stop reason format.
func getStopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}

	switch resp.DoneReason {
	case "stop", "":
		return llm.StopEndTurn
	case "length":
		return llm.StopMaxTokens
	default:
		return resp.DoneReason
	}
}

// classifyError converts Ollama errors to our error types.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusNotFound {
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "Ollama model not found")
		}
		return llmerrors.FromStatus(statusErr.StatusCode, err, "Ollama API error")
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "Ollama server not reachable")
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "Ollama model not found")
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "timeout"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	default:
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "Ollama API error")
	}
}
