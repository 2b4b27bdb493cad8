package matcher

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"eolmatch/pkg/agent/toolloop"
	"eolmatch/pkg/logx"
)

// RunStore persists a finished run.
type RunStore interface {
	SaveRun(ctx context.Context, runID string, startedAt, finishedAt time.Time, result *RunResult) error
}

// ReportWriter writes the output workbooks and returns their paths.
type ReportWriter interface {
	WriteAll(records []MatchRecord) ([]string, error)
}

// PipelineResult is everything a caller needs after a run.
//
//nolint:govet // Field order optimized for readability over memory alignment
type PipelineResult struct {
	RunID   string
	Result  RunResult
	Summary Summary
	Files   []string
}

// Pipeline loads inputs, runs a mode, then persists, reports and summarizes.
// Store and Reports are optional.
type Pipeline struct {
	Runner  Runner
	Store   RunStore
	Reports ReportWriter
	Out     io.Writer
	Logger  *logx.Logger
	// NewRunID overrides run ID generation.
	NewRunID func() string
	now      func() time.Time
}

// Run executes the pipeline on the workbook at inputPath. The returned error
// covers setup failures only; the run's own terminal state is in Result.Status.
// Partial results of INCOMPLETE and ERROR runs are still persisted and written.
func (p *Pipeline) Run(ctx context.Context, inputPath string) (*PipelineResult, error) {
	logger := p.Logger
	if logger == nil {
		logger = logx.NewLogger("pipeline")
	}
	now := p.now
	if now == nil {
		now = time.Now
	}
	newRunID := p.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	out := p.Out
	if out == nil {
		out = io.Discard
	}

	inputs, err := LoadInputs(inputPath)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no datastores found in %s", inputPath)
	}
	logger.Info("Loaded %d user datastores", len(inputs))
	fmt.Fprintf(out, "Loaded %d user datastores\n", len(inputs))

	runID := newRunID()
	ctx = logx.WithRunID(ctx, runID)
	started := now()

	result := p.Runner.Run(ctx, inputs)
	finished := now()
	logger.Info("Run %s finished: %s", runID, result.String())

	pr := &PipelineResult{RunID: runID, Result: result, Summary: Summarize(result.Records)}

	// The run context may already be cancelled; saving what we have must not be.
	saveCtx := context.WithoutCancel(ctx)
	if p.Store != nil {
		if err := p.Store.SaveRun(saveCtx, runID, started, finished, &result); err != nil {
			logger.Error("Failed to persist run %s: %v", runID, err)
		}
	}

	if p.Reports != nil && (len(result.Records) > 0 || result.Status == toolloop.StatusComplete) {
		files, err := p.Reports.WriteAll(result.Records)
		if err != nil {
			logger.Error("Failed to write reports: %v", err)
		}
		pr.Files = files
		for _, f := range files {
			fmt.Fprintf(out, "[OK] %s\n", f)
		}
	}

	switch result.Status {
	case toolloop.StatusComplete:
		fmt.Fprintf(out, "\n[OK] Processed %d datastores\n", len(result.Records))
	default:
		fmt.Fprintf(out, "\n[X] Run %s: %v\n", result.Status, result.Err)
		if result.RawText != "" {
			fmt.Fprintf(out, "Raw response: %s\n", truncate(result.RawText, 500))
		}
	}
	pr.Summary.Print(out)

	return pr, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
