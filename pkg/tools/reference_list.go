package tools

import (
	"context"
	"errors"
	"fmt"

	"eolmatch/pkg/reference"
)

// ReferenceListPayload is the get_reference_list result.
type ReferenceListPayload struct {
	Status        string   `json:"status,omitempty"`
	ErrorType     string   `json:"error_type,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
	ReferenceList []string `json:"reference_list"`
	TotalCount    int      `json:"total_count"`
}

// StatusString reports "error" for failed loads and "success" otherwise.
func (p ReferenceListPayload) StatusString() string {
	if p.Status == "" {
		return "success"
	}
	return p.Status
}

// ReferenceListTool returns the full reference candidate list.
type ReferenceListTool struct {
	cache *reference.Cache
}

// NewReferenceListTool creates the tool over a run-scoped cache.
func NewReferenceListTool(cache *reference.Cache) *ReferenceListTool {
	return &ReferenceListTool{cache: cache}
}

// Name returns the tool name.
func (t *ReferenceListTool) Name() string {
	return ToolGetReferenceList
}

// Definition returns the tool definition for the model.
func (t *ReferenceListTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: ToolGetReferenceList,
		Description: "Load the complete reference list of approved datastore names. " +
			"Call this once at the start; the result does not change during the run.",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{},
		},
	}
}

// Exec loads (or reuses) the cached reference list.
func (t *ReferenceListTool) Exec(ctx context.Context, _ map[string]any) (*ExecResult, error) {
	list, err := t.cache.Get(ctx)
	if err != nil {
		errType := ErrTypeLoadError
		msg := fmt.Sprintf("Failed to load reference list: %v", err)
		if errors.Is(err, reference.ErrFileNotFound) {
			errType = ErrTypeFileNotFound
			msg = fmt.Sprintf("Reference file not found: %v", err)
		}
		return &ExecResult{Payload: ReferenceListPayload{
			Status:        "error",
			ErrorType:     errType,
			ErrorMessage:  msg,
			ReferenceList: []string{},
		}}, nil
	}
	return &ExecResult{Payload: ReferenceListPayload{
		ReferenceList: list,
		TotalCount:    len(list),
	}}, nil
}
