package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"microfinance-scoring/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method string
	path   string
	body   map[string]interface{}
}

func newTestIndex(t *testing.T, status int, response string) (*Index, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &got.body)
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return New(es, "scores-test"), got
}

func TestIndexScore(t *testing.T) {
	idx, got := newTestIndex(t, http.StatusCreated, `{"result":"created"}`)

	err := idx.IndexScore(context.Background(), &models.ScoreRecord{
		ID: "r-1", SubjectID: "s-1", Version: 4, Score: 6.5, RiskTier: models.RiskMedium,
		ModelType: models.ModelTrained, ProductType: models.ProductConsumption,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/scores-test/_doc/r-1", got.path)
	assert.Equal(t, "s-1", got.body["subjectId"])
	assert.Equal(t, "medium", got.body["riskTier"])
	assert.EqualValues(t, 4, got.body["version"])
}

func TestIndexScore_ErrorStatus(t *testing.T) {
	idx, _ := newTestIndex(t, http.StatusBadRequest, `{"error":"mapper_parsing_exception"}`)

	err := idx.IndexScore(context.Background(), &models.ScoreRecord{ID: "r-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestAnalytics(t *testing.T) {
	resp := `{
		"hits": {"total": {"value": 42, "relation": "eq"}},
		"aggregations": {
			"avg_score": {"value": 6.25},
			"avg_score850": {"value": 644.5},
			"tiers": {"buckets": [{"key": "low", "doc_count": 30}, {"key": "high", "doc_count": 12}]},
			"models": {"buckets": [{"key": "rule_based", "doc_count": 40}, {"key": "trained", "doc_count": 2}]},
			"products": {"buckets": [{"key": "consumption", "doc_count": 42}]}
		}
	}`
	idx, got := newTestIndex(t, http.StatusOK, resp)

	res, err := idx.Analytics(context.Background(), models.AnalyticsQuery{ProductType: models.ProductConsumption})
	require.NoError(t, err)
	assert.Equal(t, "/scores-test/_search", got.path)
	assert.Equal(t, int64(42), res.TotalRecords)
	assert.Equal(t, 6.25, res.AverageScore)
	assert.Equal(t, 644.5, res.AverageScore850)
	assert.Equal(t, int64(30), res.TierDistribution[models.RiskLow])
	assert.Equal(t, int64(2), res.ModelShare[models.ModelTrained])
	assert.Equal(t, int64(42), res.ProductShare[models.ProductConsumption])
}

func TestAnalytics_EmptyIndex(t *testing.T) {
	idx, _ := newTestIndex(t, http.StatusOK, `{"hits":{"total":{"value":0}},"aggregations":{"avg_score":{"value":null}}}`)

	res, err := idx.Analytics(context.Background(), models.AnalyticsQuery{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalRecords)
	assert.Zero(t, res.AverageScore)
	assert.Empty(t, res.TierDistribution)
}

func TestBuildAnalyticsQuery(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		q           models.AnalyticsQuery
		wantFilters int
	}{
		{"no filters", models.AnalyticsQuery{}, 0},
		{"product only", models.AnalyticsQuery{ProductType: models.ProductPensionAdvance}, 1},
		{"open ended range", models.AnalyticsQuery{From: from}, 1},
		{"product and range", models.AnalyticsQuery{ProductType: models.ProductPensionAdvance, From: from, To: to}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := BuildAnalyticsQuery(tt.q)
			filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
			assert.Len(t, filters, tt.wantFilters)
			assert.Equal(t, 0, body["size"])
		})
	}

	body := BuildAnalyticsQuery(models.AnalyticsQuery{From: from, To: to})
	rng := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})[0].(map[string]interface{})["range"].(map[string]interface{})["computedAt"].(map[string]interface{})
	assert.Equal(t, "2026-01-01T00:00:00Z", rng["gte"])
	assert.Equal(t, "2026-02-01T00:00:00Z", rng["lte"])
}
