// internal/models/training.go
package models

import "time"

// TrainingSample is one labelled historical observation.
type TrainingSample struct {
	Features []float64 `json:"features"`
	Good     bool      `json:"good"`
}

// TrainingResult summarizes a completed classifier training.
type TrainingResult struct {
	ModelVersion    string    `json:"modelVersion"`
	Samples         int       `json:"samples"`
	GoodSamples     int       `json:"goodSamples"`
	BadSamples      int       `json:"badSamples"`
	TrainAccuracy   float64   `json:"trainAccuracy"`
	HoldoutAccuracy float64   `json:"holdoutAccuracy"`
	Iterations      int       `json:"iterations"`
	TrainedAt       time.Time `json:"trainedAt"`
}
