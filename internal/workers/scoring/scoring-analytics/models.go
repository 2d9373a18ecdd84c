// internal/workers/scoring/scoring-analytics/models.go
package scoringanalytics

import "microfinance-scoring/internal/models"

// Input times are RFC 3339; empty values leave the range open.
type Input struct {
	ProductType string `json:"productType,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
}

type Output struct {
	Analytics *models.ScoringAnalytics `json:"analytics"`
}
