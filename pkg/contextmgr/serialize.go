package contextmgr

import (
	"encoding/json"
	"fmt"
)

// SerializedMessage is the JSON form of a Message.
type SerializedMessage struct {
	Role        string             `json:"role"`
	Content     string             `json:"content,omitempty"`
	ToolCalls   []SerializedCall   `json:"tool_calls,omitempty"`
	ToolResults []SerializedResult `json:"tool_results,omitempty"`
}

// SerializedCall is the JSON form of a ToolCall.
//
//nolint:govet // struct alignment optimization not critical for serialization types.
type SerializedCall struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// SerializedResult is the JSON form of a ToolResult.
type SerializedResult struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name,omitempty"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Serialize renders the transcript as JSON, for storing alongside a run.
func (t *Transcript) Serialize() ([]byte, error) {
	out := make([]SerializedMessage, len(t.messages))
	for i := range t.messages {
		m := &t.messages[i]
		sm := SerializedMessage{Role: m.Role, Content: m.Content}
		for j := range m.ToolCalls {
			tc := &m.ToolCalls[j]
			sm.ToolCalls = append(sm.ToolCalls, SerializedCall{ID: tc.ID, Name: tc.Name, Parameters: tc.Parameters})
		}
		for j := range m.ToolResults {
			tr := &m.ToolResults[j]
			sm.ToolResults = append(sm.ToolResults, SerializedResult(*tr))
		}
		out[i] = sm
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return data, nil
}

// Deserialize rebuilds a transcript from Serialize output.
func Deserialize(data []byte) (*Transcript, error) {
	var in []SerializedMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	t := NewTranscript()
	for i := range in {
		sm := &in[i]
		m := Message{Role: sm.Role, Content: sm.Content}
		for j := range sm.ToolCalls {
			sc := &sm.ToolCalls[j]
			m.ToolCalls = append(m.ToolCalls, ToolCall{ID: sc.ID, Name: sc.Name, Parameters: sc.Parameters})
		}
		for j := range sm.ToolResults {
			m.ToolResults = append(m.ToolResults, ToolResult(sm.ToolResults[j]))
		}
		t.messages = append(t.messages, m)
	}
	return t, nil
}
