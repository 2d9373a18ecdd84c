// internal/workers/scoring/apply-transaction/models.go
package applytransaction

import "microfinance-scoring/internal/models"

type Input struct {
	SubjectID string                   `json:"subjectId"`
	Event     *models.TransactionEvent `json:"event"`

	// ForceRecompute scores the updated profile from scratch instead of applying the delta.
	ForceRecompute bool `json:"forceRecompute"`
}

type Output struct {
	EventID     string              `json:"eventId"`
	Score       float64             `json:"score"`
	RiskTier    models.RiskTier     `json:"riskTier"`
	Delta       float64             `json:"delta"`
	Source      models.ScoreSource  `json:"source"`
	ScoreRecord *models.ScoreRecord `json:"scoreRecord"`
}
