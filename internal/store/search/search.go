// Package search indexes score records in Elasticsearch and answers the
// aggregate analytics queries.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"microfinance-scoring/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const DefaultIndex = "score-records"

type Index struct {
	es    *elasticsearch.Client
	index string
}

func New(es *elasticsearch.Client, index string) *Index {
	if index == "" {
		index = DefaultIndex
	}
	return &Index{es: es, index: index}
}

type scoreDocument struct {
	SubjectID      string    `json:"subjectId"`
	Version        int64     `json:"version"`
	Score          float64   `json:"score"`
	Score850       int       `json:"score850"`
	RiskTier       string    `json:"riskTier"`
	EligibleAmount int64     `json:"eligibleAmount"`
	ModelType      string    `json:"modelType"`
	ProductType    string    `json:"productType"`
	Source         string    `json:"source"`
	ComputedAt     time.Time `json:"computedAt"`
}

// IndexScore stores one score record; the record id is the document id so a
// retried write overwrites instead of duplicating.
func (i *Index) IndexScore(ctx context.Context, rec *models.ScoreRecord) error {
	body, err := json.Marshal(scoreDocument{
		SubjectID:      rec.SubjectID,
		Version:        rec.Version,
		Score:          rec.Score,
		Score850:       rec.Score850,
		RiskTier:       string(rec.RiskTier),
		EligibleAmount: rec.EligibleAmount,
		ModelType:      string(rec.ModelType),
		ProductType:    string(rec.ProductType),
		Source:         string(rec.Source),
		ComputedAt:     rec.ComputedAt,
	})
	if err != nil {
		return fmt.Errorf("encode score document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: rec.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return fmt.Errorf("index score %s: %w", rec.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index score %s: %s", rec.ID, responseError(res))
	}
	return nil
}

// BuildAnalyticsQuery returns the search body for q.
func BuildAnalyticsQuery(q models.AnalyticsQuery) map[string]interface{} {
	filters := []interface{}{}
	if q.ProductType != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"productType": string(q.ProductType)},
		})
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		rng := map[string]interface{}{}
		if !q.From.IsZero() {
			rng["gte"] = q.From.UTC().Format(time.RFC3339)
		}
		if !q.To.IsZero() {
			rng["lte"] = q.To.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"computedAt": rng},
		})
	}

	return map[string]interface{}{
		"size":             0,
		"track_total_hits": true,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"aggs": map[string]interface{}{
			"avg_score":    map[string]interface{}{"avg": map[string]interface{}{"field": "score"}},
			"avg_score850": map[string]interface{}{"avg": map[string]interface{}{"field": "score850"}},
			"tiers":        map[string]interface{}{"terms": map[string]interface{}{"field": "riskTier", "size": 10}},
			"models":       map[string]interface{}{"terms": map[string]interface{}{"field": "modelType", "size": 10}},
			"products":     map[string]interface{}{"terms": map[string]interface{}{"field": "productType", "size": 20}},
		},
	}
}

type bucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

type analyticsResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
	} `json:"hits"`
	Aggregations struct {
		AvgScore struct {
			Value *float64 `json:"value"`
		} `json:"avg_score"`
		AvgScore850 struct {
			Value *float64 `json:"value"`
		} `json:"avg_score850"`
		Tiers struct {
			Buckets []bucket `json:"buckets"`
		} `json:"tiers"`
		Models struct {
			Buckets []bucket `json:"buckets"`
		} `json:"models"`
		Products struct {
			Buckets []bucket `json:"buckets"`
		} `json:"products"`
	} `json:"aggregations"`
}

func (i *Index) Analytics(ctx context.Context, q models.AnalyticsQuery) (*models.ScoringAnalytics, error) {
	body, err := json.Marshal(BuildAnalyticsQuery(q))
	if err != nil {
		return nil, fmt.Errorf("encode analytics query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return nil, fmt.Errorf("analytics search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("analytics search: %s", responseError(res))
	}

	var parsed analyticsResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode analytics response: %w", err)
	}

	out := &models.ScoringAnalytics{
		TotalRecords:     parsed.Hits.Total.Value,
		TierDistribution: map[models.RiskTier]int64{},
		ModelShare:       map[models.ModelType]int64{},
		ProductShare:     map[models.ProductType]int64{},
	}
	if v := parsed.Aggregations.AvgScore.Value; v != nil {
		out.AverageScore = *v
	}
	if v := parsed.Aggregations.AvgScore850.Value; v != nil {
		out.AverageScore850 = *v
	}
	for _, b := range parsed.Aggregations.Tiers.Buckets {
		out.TierDistribution[models.RiskTier(b.Key)] = b.DocCount
	}
	for _, b := range parsed.Aggregations.Models.Buckets {
		out.ModelShare[models.ModelType(b.Key)] = b.DocCount
	}
	for _, b := range parsed.Aggregations.Products.Buckets {
		out.ProductShare[models.ProductType(b.Key)] = b.DocCount
	}
	return out, nil
}

func responseError(res *esapi.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	if len(raw) == 0 {
		return res.Status()
	}
	return res.Status() + ": " + string(raw)
}
