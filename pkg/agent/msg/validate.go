// Package msg validates completion requests before they reach a provider.
package msg

import (
	"context"
	"fmt"
	"strings"

	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/agent/llmerrors"
)

// MessageValidationError represents a validation error for completion messages.
type MessageValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e MessageValidationError) Error() string {
	return fmt.Sprintf("message validation error - %s: '%s' (%s)", e.Field, e.Value, e.Reason)
}

// ValidateMessages checks roles, emptiness and tool-call pairing across a conversation.
// Every tool result must answer a tool call issued by an earlier assistant turn.
func ValidateMessages(messages []llm.CompletionMessage) error {
	if len(messages) == 0 {
		return MessageValidationError{
			Field:  "messages",
			Value:  "[]",
			Reason: "at least one message is required",
		}
	}

	issued := make(map[string]bool)
	for i := range messages {
		m := &messages[i]
		if err := ValidateMessage(m); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
		for j := range m.ToolCalls {
			issued[m.ToolCalls[j].ID] = true
		}
		for j := range m.ToolResults {
			id := m.ToolResults[j].ToolCallID
			if !issued[id] {
				return fmt.Errorf("message %d: %w", i, MessageValidationError{
					Field:  "tool_call_id",
					Value:  id,
					Reason: "tool result does not answer any earlier tool call",
				})
			}
		}
	}
	return nil
}

// ValidateMessage validates a single completion message.
func ValidateMessage(m *llm.CompletionMessage) error {
	if err := ValidateRole(m.Role); err != nil {
		return err
	}

	if len(m.ToolResults) > 0 && m.Role != llm.RoleUser {
		return MessageValidationError{Field: "role", Value: string(m.Role), Reason: "tool results must be sent in a user turn"}
	}
	if len(m.ToolCalls) > 0 && m.Role != llm.RoleAssistant {
		return MessageValidationError{Field: "role", Value: string(m.Role), Reason: "tool calls belong to assistant turns"}
	}
	for j := range m.ToolCalls {
		if m.ToolCalls[j].ID == "" || m.ToolCalls[j].Name == "" {
			return MessageValidationError{Field: "tool_calls", Value: m.ToolCalls[j].Name, Reason: "tool call needs an id and a name"}
		}
	}

	if len(m.ToolCalls) == 0 && len(m.ToolResults) == 0 {
		return ValidateContent(m.Content)
	}
	return nil
}

// ValidateRole validates that a role is valid and non-empty.
func ValidateRole(role llm.CompletionRole) error {
	roleStr := string(role)
	if strings.TrimSpace(roleStr) == "" {
		return MessageValidationError{
			Field:  "role",
			Value:  roleStr,
			Reason: "role cannot be empty",
		}
	}

	if role != llm.RoleUser && role != llm.RoleAssistant && role != llm.RoleSystem {
		return MessageValidationError{
			Field:  "role",
			Value:  roleStr,
			Reason: "role must be one of: user, assistant, system",
		}
	}

	return nil
}

// ValidateContent validates that content is not empty.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return MessageValidationError{
			Field:  "content",
			Value:  content,
			Reason: "content cannot be empty or whitespace-only",
		}
	}
	return nil
}

// Middleware rejects malformed requests with a bad-prompt error before they cost a provider call.
func Middleware() llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if err := ValidateMessages(req.Messages); err != nil {
					return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "invalid completion request: "+err.Error())
				}
				return next.Complete(ctx, req)
			},
			next.GetModelName,
		)
	}
}
