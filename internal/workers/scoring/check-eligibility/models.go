// internal/workers/scoring/check-eligibility/models.go
package checkeligibility

import "microfinance-scoring/internal/models"

type Input struct {
	SubjectID   string `json:"subjectId"`
	ProductType string `json:"productType,omitempty"`
}

type Output struct {
	Eligible       bool               `json:"eligible"`
	Reasons        []string           `json:"reasons"`
	EligibleAmount int64              `json:"eligibleAmount"`
	ProductType    models.ProductType `json:"productType"`
	Score          float64            `json:"score"`
	RiskTier       models.RiskTier    `json:"riskTier"`
}
