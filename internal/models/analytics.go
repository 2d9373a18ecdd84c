package models

import "time"

// AnalyticsQuery selects the score records an analytics report covers.
// An empty ProductType covers every product; zero times leave the range open.
type AnalyticsQuery struct {
	ProductType ProductType `json:"productType,omitempty"`
	From        time.Time   `json:"from"`
	To          time.Time   `json:"to"`
}

type ScoringAnalytics struct {
	TotalRecords     int64                 `json:"totalRecords"`
	AverageScore     float64               `json:"averageScore"`
	AverageScore850  float64               `json:"averageScore850"`
	TierDistribution map[RiskTier]int64    `json:"tierDistribution"`
	ModelShare       map[ModelType]int64   `json:"modelShare"`
	ProductShare     map[ProductType]int64 `json:"productShare"`
}

// RecalculationReport summarizes a bulk recompute.
// Failed maps subject ids to the error that stopped their recompute.
type RecalculationReport struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
	Duration  time.Duration     `json:"duration"`
}
