package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"eolmatch/pkg/agent/toolloop"
	"eolmatch/pkg/config"
	"eolmatch/pkg/contextmgr"
	"eolmatch/pkg/eol"
	"eolmatch/pkg/matcher"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResult() *matcher.RunResult {
	transcript := contextmgr.NewTranscript()
	transcript.AddSystem("system")
	transcript.AddUser("match these")
	transcript.AddAssistant("", []contextmgr.ToolCall{{ID: "c1", Name: "lookup_version", Parameters: map[string]any{"product": "Redis", "version": "7"}}})
	transcript.AddToolResults([]contextmgr.ToolResult{{ToolCallID: "c1", ToolName: "lookup_version", Content: `{"status":"success"}`}})

	return &matcher.RunResult{
		Mode:       config.ModeAgentic,
		Status:     toolloop.StatusComplete,
		Iterations: 2,
		Records: []matcher.MatchRecord{
			{InputName: "Redis 7", MatchedName: "Redis 7", Confidence: 1, Reasoning: "exact"},
			{InputName: "PostGres 14.6", MatchedName: "PostgreSQL 14", Confidence: 0.65, Reasoning: "typo",
				Enrichment: &eol.Result{Status: eol.StatusSuccess, Product: "PostgreSQL", EOLDate: "2026-11-12"}},
		},
		ToolCalls: []toolloop.ToolCallRecord{
			{Iteration: 1, CallID: "c1", ToolName: "lookup_version", Arguments: map[string]any{"product": "Redis", "version": "7"}, Content: `{"status":"success"}`},
		},
		Transcript: transcript,
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	finished := started.Add(42 * time.Second)

	if err := store.SaveRun(ctx, "run-1", started, finished, sampleResult()); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != string(toolloop.StatusComplete) || run.Mode != config.ModeAgentic {
		t.Errorf("Unexpected run status/mode: %s/%s", run.Status, run.Mode)
	}
	if !run.StartedAt.Equal(started) || !run.FinishedAt.Equal(finished) {
		t.Errorf("Timestamps not preserved: %v - %v", run.StartedAt, run.FinishedAt)
	}
	if run.RecordCount != 2 || run.Iterations != 2 {
		t.Errorf("Expected 2 records and 2 iterations, got %d and %d", run.RecordCount, run.Iterations)
	}
	if run.Diagnostic != "" {
		t.Errorf("Complete run should have no diagnostic, got %q", run.Diagnostic)
	}

	transcript, err := contextmgr.Deserialize([]byte(run.TranscriptJSON))
	if err != nil {
		t.Fatalf("Stored transcript does not deserialize: %v", err)
	}
	if transcript.Len() != 4 {
		t.Errorf("Expected 4 transcript messages, got %d", transcript.Len())
	}

	calls, err := store.GetToolCalls(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetToolCalls failed: %v", err)
	}
	if len(calls) != 1 || calls[0].ToolName != "lookup_version" || calls[0].ArgumentsJSON != `{"product":"Redis","version":"7"}` {
		t.Errorf("Unexpected tool calls: %+v", calls)
	}

	results, err := store.GetMatchResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetMatchResults failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 match results, got %d", len(results))
	}
	if results[0].InputDatastore != "Redis 7" || results[0].EOLStatus != "" {
		t.Errorf("Unexpected first result: %+v", results[0])
	}
	if results[1].EOLStatus != string(eol.StatusSuccess) || results[1].EOLJSON == "" {
		t.Errorf("Enrichment not stored: %+v", results[1])
	}
}

func TestSaveRunReplacesExistingRun(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.SaveRun(ctx, "run-1", now, now, sampleResult()); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	partial := sampleResult()
	partial.Status = toolloop.StatusIncomplete
	partial.Records = partial.Records[:1]
	partial.ToolCalls = nil
	partial.RawText = "half an answer"
	partial.Err = toolloop.ErrGracefulShutdown
	if err := store.SaveRun(ctx, "run-1", now, now, partial); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != string(toolloop.StatusIncomplete) || run.RawText != "half an answer" {
		t.Errorf("Run not replaced: %+v", run)
	}
	if run.Diagnostic == "" {
		t.Error("Incomplete run should carry a diagnostic")
	}

	results, _ := store.GetMatchResults(ctx, "run-1")
	if len(results) != 1 {
		t.Errorf("Expected stale match results to be removed, got %d", len(results))
	}
	calls, _ := store.GetToolCalls(ctx, "run-1")
	if len(calls) != 0 {
		t.Errorf("Expected stale tool calls to be removed, got %d", len(calls))
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := createTestStore(t)
	_, err := store.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Hour)
		if err := store.SaveRun(ctx, id, at, at, sampleResult()); err != nil {
			t.Fatalf("SaveRun %s failed: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("Unexpected run order: %+v", runs)
	}
}

func TestSaveRunRejectsNil(t *testing.T) {
	store := createTestStore(t)
	if err := store.SaveRun(context.Background(), "x", time.Now(), time.Now(), nil); err == nil {
		t.Error("Expected error for nil result")
	}
}

func TestSchemaVersionOnFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = store.Close()

	// Reopening an up-to-date database is a no-op.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	version, err := GetSchemaVersion(store.DB())
	if err != nil {
		t.Fatalf("GetSchemaVersion failed: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", CurrentSchemaVersion, version)
	}
}
