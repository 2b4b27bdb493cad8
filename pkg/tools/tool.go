// Package tools exposes the operations a model may invoke during a matching run.
package tools

import (
	"context"
)

// Tool names exposed to the model.
const (
	ToolGetReferenceList = "get_reference_list"
	ToolLookupVersion    = "lookup_version"
)

// Error types produced at the registry and reference-list level.
const (
	ErrTypeUnknownTool  = "UNKNOWN_TOOL"
	ErrTypeServerError  = "SERVER_ERROR"
	ErrTypeLoadError    = "LOAD_ERROR"
	ErrTypeFileNotFound = "FILE_NOT_FOUND"
)

// Property describes one input parameter.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// InputSchema is the JSON-schema object describing a tool's arguments.
type InputSchema struct {
	Properties map[string]Property `json:"properties"`
	Type       string              `json:"type"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is what providers advertise to the model.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// ExecResult carries a tool's structured payload.
type ExecResult struct {
	Payload any
}

// Tool is an invocable operation. Exec should encode expected failures in the
// payload; a returned error is treated as a server fault by the Registry.
type Tool interface {
	Name() string
	Definition() ToolDefinition
	Exec(ctx context.Context, args map[string]any) (*ExecResult, error)
}

// ErrorEnvelope is the payload for failures that happen outside a tool.
type ErrorEnvelope struct {
	Status       string `json:"status"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

func errorEnvelope(errorType, message string) ErrorEnvelope {
	return ErrorEnvelope{Status: "error", ErrorType: errorType, ErrorMessage: message}
}
