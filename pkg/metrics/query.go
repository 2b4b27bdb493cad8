// Package metrics queries aggregated run usage from a Prometheus server that scrapes eolmatch.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// RunMetrics represents aggregated token and request counts for one run.
type RunMetrics struct {
	RunID            string `json:"run_id"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Requests         int64  `json:"requests"`
	FailedRequests   int64  `json:"failed_requests"`
}

// QueryService provides methods to query metrics from Prometheus.
type QueryService struct {
	queryAPI v1.API
	now      func() time.Time
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		queryAPI: v1.NewAPI(client),
		now:      time.Now,
	}, nil
}

// GetRunMetrics sums llm_tokens_total and llm_requests_total for runID across all models.
func (q *QueryService) GetRunMetrics(ctx context.Context, runID string) (*RunMetrics, error) {
	metrics := &RunMetrics{RunID: runID}

	queries := []struct {
		dst   *int64
		query string
		what  string
	}{
		{&metrics.PromptTokens, fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, type="prompt"})`, runID), "prompt tokens"},
		{&metrics.CompletionTokens, fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, type="completion"})`, runID), "completion tokens"},
		{&metrics.Requests, fmt.Sprintf(`sum(llm_requests_total{run_id=%q})`, runID), "requests"},
		{&metrics.FailedRequests, fmt.Sprintf(`sum(llm_requests_total{run_id=%q, status="error"})`, runID), "failed requests"},
	}

	for _, qq := range queries {
		value, err := q.scalar(ctx, qq.query)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", qq.what, err)
		}
		*qq.dst = value
	}

	metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens
	return metrics, nil
}

func (q *QueryService) scalar(ctx context.Context, query string) (int64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, q.now())
	if err != nil {
		return 0, fmt.Errorf("prometheus query: %w", err)
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return int64(vector[0].Value), nil
	}
	return 0, nil
}
