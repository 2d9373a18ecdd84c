// internal/workers/scoring/score-history/models.go
package scorehistory

import "microfinance-scoring/internal/models"

type Input struct {
	SubjectID string `json:"subjectId"`
	Limit     int    `json:"limit,omitempty"`
}

type Output struct {
	SubjectID string               `json:"subjectId"`
	Count     int                  `json:"count"`
	Records   []models.ScoreRecord `json:"records"`
}
