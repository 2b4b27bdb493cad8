package metrics

import (
	"sync"
	"time"
)

// RunMetrics is the in-process aggregate for one run.
//
//nolint:govet
type RunMetrics struct {
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	RequestCount     int64     `json:"request_count"`
	ErrorCount       int64     `json:"error_count"`
	RunID            string    `json:"run_id"`
	LastUpdated      time.Time `json:"last_updated"`
}

// InternalRecorder aggregates per-run usage in memory, without an external Prometheus.
type InternalRecorder struct {
	runs map[string]*RunMetrics
	mu   sync.RWMutex
}

// NewInternalRecorder creates an empty recorder.
func NewInternalRecorder() *InternalRecorder {
	return &InternalRecorder{runs: make(map[string]*RunMetrics)}
}

// ObserveRequest records metrics for a completed LLM request.
func (r *InternalRecorder) ObserveRequest(
	_, runID, _ string,
	promptTokens, completionTokens int,
	success bool,
	_ string,
	_ time.Duration,
) {
	if runID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	run, exists := r.runs[runID]
	if !exists {
		run = &RunMetrics{RunID: runID}
		r.runs[runID] = run
	}

	run.RequestCount++
	run.LastUpdated = time.Now()
	if !success {
		run.ErrorCount++
		return
	}
	run.PromptTokens += int64(promptTokens)
	run.CompletionTokens += int64(completionTokens)
	run.TotalTokens = run.PromptTokens + run.CompletionTokens
}

// GetRunMetrics returns a copy of the aggregate for runID, or nil.
func (r *InternalRecorder) GetRunMetrics(runID string) *RunMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if run, exists := r.runs[runID]; exists {
		cp := *run
		return &cp
	}
	return nil
}

// Reset clears all metrics.
func (r *InternalRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = make(map[string]*RunMetrics)
}
