// internal/workers/scoring/train-classifier/models.go
package trainclassifier

import "microfinance-scoring/internal/models"

// Input carries an optional inline dataset; without one the stored
// training samples are used.
type Input struct {
	Samples []models.TrainingSample `json:"samples,omitempty"`
}

type Output struct {
	ModelVersion    string                 `json:"modelVersion"`
	HoldoutAccuracy float64                `json:"holdoutAccuracy"`
	Result          *models.TrainingResult `json:"trainingResult"`
}
