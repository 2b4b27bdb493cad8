// Package contextmgr holds the conversation transcript of a single matching run.
package contextmgr

import (
	"fmt"
	"sort"
	"strings"

	"eolmatch/pkg/utils"
)

// Roles used in the transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Parameters map[string]any
	ID         string
	Name       string
}

// ToolResult answers a ToolCall.
type ToolResult struct {
	ToolCallID string
	ToolName   string
	Content    string
	IsError    bool
}

// Message is one turn of the transcript.
type Message struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Transcript is an append-only sequence of turns. Messages are copied on the
// way in and on the way out, so nothing already appended can be mutated.
// A Transcript is owned by one run and is not safe for concurrent use.
type Transcript struct {
	messages []Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make([]Message, 0, 8)}
}

// AddSystem appends a system instruction.
func (t *Transcript) AddSystem(content string) {
	t.messages = append(t.messages, Message{Role: RoleSystem, Content: content})
}

// AddUser appends a plain user turn.
func (t *Transcript) AddUser(content string) {
	t.messages = append(t.messages, Message{Role: RoleUser, Content: content})
}

// AddAssistant appends a model turn with any tool calls it requested.
func (t *Transcript) AddAssistant(content string, calls []ToolCall) {
	t.messages = append(t.messages, Message{
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: cloneCalls(calls),
	})
}

// AddToolResults appends a single user turn bundling every result of one model turn.
func (t *Transcript) AddToolResults(results []ToolResult) {
	if len(results) == 0 {
		return
	}
	rs := make([]ToolResult, len(results))
	copy(rs, results)
	t.messages = append(t.messages, Message{Role: RoleUser, ToolResults: rs})
}

// Messages returns a copy of all turns.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	for i := range t.messages {
		out[i] = cloneMessage(&t.messages[i])
	}
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// CountTokens estimates the transcript size in tokens.
func (t *Transcript) CountTokens() int {
	total := 0
	for i := range t.messages {
		m := &t.messages[i]
		total += utils.CountTokensSimple(m.Content)
		for j := range m.ToolCalls {
			total += utils.CountTokensSimple(m.ToolCalls[j].Name)
			total += utils.CountTokensSimple(fmt.Sprint(m.ToolCalls[j].Parameters))
		}
		for j := range m.ToolResults {
			total += utils.CountTokensSimple(m.ToolResults[j].Content)
		}
	}
	return total
}

// Summary returns a short description such as "4 messages (812 tokens) - assistant: 1, system: 1, user: 2".
func (t *Transcript) Summary() string {
	if len(t.messages) == 0 {
		return "Empty transcript"
	}

	counts := make(map[string]int)
	for i := range t.messages {
		counts[t.messages[i].Role]++
	}
	roles := make([]string, 0, len(counts))
	for role := range counts {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	parts := make([]string, 0, len(roles))
	for _, role := range roles {
		parts = append(parts, fmt.Sprintf("%s: %d", role, counts[role]))
	}
	return fmt.Sprintf("%d messages (%d tokens) - %s", len(t.messages), t.CountTokens(), strings.Join(parts, ", "))
}

func cloneCalls(calls []ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i := range calls {
		out[i] = ToolCall{ID: calls[i].ID, Name: calls[i].Name, Parameters: cloneParams(calls[i].Parameters)}
	}
	return out
}

func cloneParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

func cloneMessage(m *Message) Message {
	out := Message{Role: m.Role, Content: m.Content, ToolCalls: cloneCalls(m.ToolCalls)}
	if len(m.ToolResults) > 0 {
		out.ToolResults = make([]ToolResult, len(m.ToolResults))
		copy(out.ToolResults, m.ToolResults)
	}
	return out
}
