// internal/workers/scoring/recalculate-scores/models.go
package recalculatescores

type Input struct {
	Limit int `json:"limit,omitempty"`
}

type Output struct {
	Total       int               `json:"total"`
	Succeeded   int               `json:"succeeded"`
	FailedCount int               `json:"failedCount"`
	Failed      map[string]string `json:"failed"`
	DurationMs  int64             `json:"durationMs"`
}
