package persistence

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when a requested run does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is a persisted matching run.
//
//nolint:govet // struct alignment optimization not critical for this type.
type Run struct {
	ID             string    `json:"id"`
	Mode           string    `json:"mode"`
	Status         string    `json:"status"` // COMPLETE, INCOMPLETE or ERROR
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Iterations     int       `json:"iterations"`
	RecordCount    int       `json:"record_count"`
	Diagnostic     string    `json:"diagnostic,omitempty"`
	RawText        string    `json:"raw_text,omitempty"`
	TranscriptJSON string    `json:"transcript_json,omitempty"`
}

// ToolCall is one persisted tool invocation.
type ToolCall struct {
	RunID         string `json:"run_id"`
	Seq           int    `json:"seq"`
	Iteration     int    `json:"iteration"`
	CallID        string `json:"call_id"`
	ToolName      string `json:"tool_name"`
	ArgumentsJSON string `json:"arguments_json"`
	ResultJSON    string `json:"result_json"`
	IsError       bool   `json:"is_error"`
}

// MatchResult is one persisted match record.
//
//nolint:govet // struct alignment optimization not critical for this type.
type MatchResult struct {
	RunID            string  `json:"run_id"`
	Seq              int     `json:"seq"`
	InputDatastore   string  `json:"input_datastore"`
	MatchedDatastore string  `json:"matched_datastore"`
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning"`
	EOLStatus        string  `json:"eol_status,omitempty"` // empty when the record was not enriched
	EOLJSON          string  `json:"eol_json,omitempty"`
}
