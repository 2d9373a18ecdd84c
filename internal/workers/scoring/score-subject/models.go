// internal/workers/scoring/score-subject/models.go
package scoresubject

import "microfinance-scoring/internal/models"

type Input struct {
	SubjectID      string                   `json:"subjectId"`
	Profile        *models.ApplicantProfile `json:"profile,omitempty"`
	ForceRecompute bool                     `json:"forceRecompute"`
}

// Output flattens the fields BPMN gateways branch on next to the full record.
type Output struct {
	Score          float64             `json:"score"`
	Score850       int                 `json:"score850"`
	RiskTier       models.RiskTier     `json:"riskTier"`
	EligibleAmount int64               `json:"eligibleAmount"`
	ModelType      models.ModelType    `json:"modelType"`
	ScoreRecord    *models.ScoreRecord `json:"scoreRecord"`
}
