package classifier

import (
	"fmt"
	"math"
	"time"
)

// Snapshot is a trained logistic-regression model together with the
// standardization statistics captured at training time.
type Snapshot struct {
	Version         string    `json:"version"`
	Weights         []float64 `json:"weights"`
	Bias            float64   `json:"bias"`
	Means           []float64 `json:"means"`
	StdDevs         []float64 `json:"stdDevs"`
	HoldoutAccuracy float64   `json:"holdoutAccuracy"`
	TrainedAt       time.Time `json:"trainedAt"`
}

// Dim is the expected feature-vector length.
func (s *Snapshot) Dim() int { return len(s.Weights) }

func (s *Snapshot) check() error {
	if len(s.Weights) == 0 {
		return fmt.Errorf("%w: empty weights", ErrInvalidSnapshot)
	}
	if len(s.Means) != len(s.Weights) || len(s.StdDevs) != len(s.Weights) {
		return fmt.Errorf("%w: %d weights, %d means, %d std devs",
			ErrInvalidSnapshot, len(s.Weights), len(s.Means), len(s.StdDevs))
	}
	for _, v := range append(append(append([]float64{s.Bias}, s.Weights...), s.Means...), s.StdDevs...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite parameter", ErrInvalidSnapshot)
		}
	}
	return nil
}

// probability returns P(good | x).
func (s *Snapshot) probability(x []float64) (float64, error) {
	if len(x) != s.Dim() {
		return 0, fmt.Errorf("%w: got %d features, model expects %d", ErrShapeMismatch, len(x), s.Dim())
	}
	z := s.Bias
	for i, v := range x {
		z += s.Weights[i] * standardize(v, s.Means[i], s.StdDevs[i])
	}
	p := sigmoid(z)
	if math.IsNaN(p) {
		return 0, fmt.Errorf("%w: prediction is not a number", ErrShapeMismatch)
	}
	return p, nil
}

func standardize(v, mean, std float64) float64 {
	return (v - mean) / std
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// columnStats returns per-column mean and population standard deviation.
// Constant columns get a standard deviation of 1.
func columnStats(rows [][]float64, dim int) (means, stds []float64) {
	means = make([]float64, dim)
	stds = make([]float64, dim)
	n := float64(len(rows))
	for _, r := range rows {
		for j := range dim {
			means[j] += r[j]
		}
	}
	for j := range dim {
		means[j] /= n
	}
	for _, r := range rows {
		for j := range dim {
			d := r[j] - means[j]
			stds[j] += d * d
		}
	}
	for j := range dim {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] < 1e-12 {
			stds[j] = 1
		}
	}
	return means, stds
}
