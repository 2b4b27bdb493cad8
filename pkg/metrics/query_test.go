package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorBody(value string) string {
	return `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,"` + value + `"]}]}}`
}

func TestGetRunMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		query := r.Form.Get("query")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(query, `type="prompt"`):
			_, _ = w.Write([]byte(vectorBody("1200")))
		case strings.Contains(query, `type="completion"`):
			_, _ = w.Write([]byte(vectorBody("300")))
		case strings.Contains(query, `status="error"`):
			_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[]}}`))
		default:
			_, _ = w.Write([]byte(vectorBody("4")))
		}
	}))
	defer srv.Close()

	q, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	m, err := q.GetRunMetrics(t.Context(), "run-42")
	require.NoError(t, err)
	assert.Equal(t, "run-42", m.RunID)
	assert.EqualValues(t, 1200, m.PromptTokens)
	assert.EqualValues(t, 300, m.CompletionTokens)
	assert.EqualValues(t, 1500, m.TotalTokens)
	assert.EqualValues(t, 4, m.Requests)
	assert.Zero(t, m.FailedRequests)
}

func TestGetRunMetricsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","errorType":"bad_data","error":"parse error"}`))
	}))
	defer srv.Close()

	q, err := NewQueryService(srv.URL)
	require.NoError(t, err)

	_, err = q.GetRunMetrics(t.Context(), "run-42")
	assert.Error(t, err)
}
