package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eolmatch/pkg/matcher"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ matcher.RunStore = (*Store)(nil)

// SaveRun stores a run with its tool calls and match records in one
// transaction. Saving the same run ID again replaces the earlier copy.
func (s *Store) SaveRun(ctx context.Context, runID string, startedAt, finishedAt time.Time, result *matcher.RunResult) error {
	if result == nil {
		return fmt.Errorf("nil result for run %s", runID)
	}

	var transcript []byte
	if result.Transcript != nil {
		data, err := result.Transcript.Serialize()
		if err != nil {
			return fmt.Errorf("failed to serialize transcript for run %s: %w", runID, err)
		}
		transcript = data
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"tool_calls", "match_results"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("failed to clear %s of run %s: %w", table, runID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear run %s: %w", runID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, mode, status, started_at, finished_at, iterations, record_count, diagnostic, raw_text, transcript_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, result.Mode, string(result.Status),
		startedAt.UTC().Format(timeLayout), finishedAt.UTC().Format(timeLayout),
		result.Iterations, len(result.Records), result.Diagnostic(), result.RawText, string(transcript),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}

	for i := range result.ToolCalls {
		call := &result.ToolCalls[i]
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			return fmt.Errorf("failed to marshal arguments of tool call %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tool_calls (run_id, seq, iteration, call_id, tool_name, arguments_json, result_json, is_error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, call.Iteration, call.CallID, call.ToolName, string(args), call.Content, boolToInt(call.IsError),
		)
		if err != nil {
			return fmt.Errorf("failed to insert tool call %d: %w", i, err)
		}
	}

	for i := range result.Records {
		rec := &result.Records[i]
		var eolStatus, eolJSON sql.NullString
		if rec.Enrichment != nil {
			data, err := json.Marshal(rec.Enrichment)
			if err != nil {
				return fmt.Errorf("failed to marshal enrichment of record %d: %w", i, err)
			}
			eolStatus = sql.NullString{String: string(rec.Enrichment.Status), Valid: true}
			eolJSON = sql.NullString{String: string(data), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO match_results (run_id, seq, input_datastore, matched_datastore, confidence, reasoning, eol_status, eol_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, rec.InputName, rec.MatchedName, rec.Confidence, rec.Reasoning, eolStatus, eolJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert match result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}
	s.logger.Info("💾 Saved run %s (%s, %d records, %d tool calls)", runID, result.Status, len(result.Records), len(result.ToolCalls))
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, status, started_at, finished_at, iterations, record_count,
		       COALESCE(diagnostic, ''), COALESCE(raw_text, ''), COALESCE(transcript_json, '')
		FROM runs WHERE id = ?`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, at most limit of them.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, status, started_at, finished_at, iterations, record_count,
		       COALESCE(diagnostic, ''), COALESCE(raw_text, ''), COALESCE(transcript_json, '')
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetToolCalls returns a run's tool calls in execution order.
func (s *Store) GetToolCalls(ctx context.Context, runID string) ([]*ToolCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, iteration, COALESCE(call_id, ''), tool_name,
		       COALESCE(arguments_json, ''), COALESCE(result_json, ''), is_error
		FROM tool_calls WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool calls for run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var calls []*ToolCall
	for rows.Next() {
		c := &ToolCall{}
		var isError int
		if err := rows.Scan(&c.RunID, &c.Seq, &c.Iteration, &c.CallID, &c.ToolName, &c.ArgumentsJSON, &c.ResultJSON, &isError); err != nil {
			return nil, fmt.Errorf("failed to scan tool call: %w", err)
		}
		c.IsError = isError != 0
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tool calls: %w", err)
	}
	return calls, nil
}

// GetMatchResults returns a run's match records in input order.
func (s *Store) GetMatchResults(ctx context.Context, runID string) ([]*MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, input_datastore, matched_datastore, confidence,
		       COALESCE(reasoning, ''), COALESCE(eol_status, ''), COALESCE(eol_json, '')
		FROM match_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match results for run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var results []*MatchResult
	for rows.Next() {
		m := &MatchResult{}
		if err := rows.Scan(&m.RunID, &m.Seq, &m.InputDatastore, &m.MatchedDatastore, &m.Confidence, &m.Reasoning, &m.EOLStatus, &m.EOLJSON); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match results: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var started, finished string
	if err := row.Scan(&run.ID, &run.Mode, &run.Status, &started, &finished, &run.Iterations, &run.RecordCount,
		&run.Diagnostic, &run.RawText, &run.TranscriptJSON); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("bad started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("bad finished_at %q: %w", finished, err)
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
