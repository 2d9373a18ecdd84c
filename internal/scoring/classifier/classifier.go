// Package classifier wraps a trainable good/bad debtor classifier. Models are
// swapped atomically so predictions never wait for a training run.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	stderrors "microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/models"

	"github.com/google/uuid"
)

var (
	ErrClassifierUnavailable = errors.New("classifier: no trained model loaded")
	ErrShapeMismatch         = errors.New("classifier: feature shape mismatch")
	ErrInvalidSnapshot       = errors.New("classifier: invalid snapshot")
	ErrTrainingInProgress    = errors.New("classifier: training already in progress")
)

// DefaultMinSamples is the smallest dataset Train accepts.
const DefaultMinSamples = 30

// Options tunes gradient descent.
type Options struct {
	MinSamples   int
	Iterations   int
	LearningRate float64
	L2           float64
	// HoldoutEvery puts every n-th sample into the holdout set. 0 disables it.
	HoldoutEvery int
}

func DefaultOptions() Options {
	return Options{
		MinSamples:   DefaultMinSamples,
		Iterations:   500,
		LearningRate: 0.1,
		L2:           0.001,
		HoldoutEvery: 5,
	}
}

type Classifier struct {
	dim      int
	opts     Options
	current  atomic.Pointer[Snapshot]
	training atomic.Bool
}

// New returns an untrained classifier over dim-sized feature vectors.
func New(dim int, opts Options) *Classifier {
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultMinSamples
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultOptions().Iterations
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultOptions().LearningRate
	}
	return &Classifier{dim: dim, opts: opts}
}

func (c *Classifier) IsAvailable() bool {
	return c.current.Load() != nil
}

// Current returns the loaded snapshot or nil.
func (c *Classifier) Current() *Snapshot {
	return c.current.Load()
}

// Training reports whether a training run is active.
func (c *Classifier) Training() bool {
	return c.training.Load()
}

// Predict returns the probability that the subject is a good debtor.
func (c *Classifier) Predict(x []float64) (float64, error) {
	snap := c.current.Load()
	if snap == nil {
		return 0, ErrClassifierUnavailable
	}
	return snap.probability(x)
}

// Load installs a previously published snapshot.
func (c *Classifier) Load(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil", ErrInvalidSnapshot)
	}
	if err := snap.check(); err != nil {
		return err
	}
	if snap.Dim() != c.dim {
		return fmt.Errorf("%w: snapshot has %d features, want %d", ErrShapeMismatch, snap.Dim(), c.dim)
	}
	c.current.Store(snap)
	return nil
}

// Train fits a new model and swaps it in on success. On any failure the
// previously loaded model stays active.
func (c *Classifier) Train(ctx context.Context, samples []models.TrainingSample) (*models.TrainingResult, *Snapshot, error) {
	if !c.training.CompareAndSwap(false, true) {
		return nil, nil, ErrTrainingInProgress
	}
	defer c.training.Store(false)

	good, bad := 0, 0
	for i, s := range samples {
		if len(s.Features) != c.dim {
			return nil, nil, stderrors.NewInvalidInputError(
				fmt.Sprintf("sample %d has %d features, want %d", i, len(s.Features), c.dim))
		}
		if s.Good {
			good++
		} else {
			bad++
		}
	}
	if len(samples) < c.opts.MinSamples {
		return nil, nil, stderrors.NewInsufficientDataError(
			fmt.Sprintf("%d samples, at least %d required", len(samples), c.opts.MinSamples))
	}
	if good == 0 || bad == 0 {
		return nil, nil, stderrors.NewInsufficientDataError("training data contains a single outcome class")
	}

	train, holdout := split(samples, c.opts.HoldoutEvery)

	rows := make([][]float64, len(train))
	for i, s := range train {
		rows[i] = s.Features
	}
	means, stds := columnStats(rows, c.dim)

	snap := &Snapshot{
		Weights: make([]float64, c.dim),
		Means:   means,
		StdDevs: stds,
	}
	if err := c.fit(ctx, snap, train); err != nil {
		return nil, nil, err
	}

	snap.Version = uuid.NewString()
	snap.TrainedAt = time.Now().UTC()
	trainAcc := accuracy(snap, train)
	snap.HoldoutAccuracy = trainAcc
	if len(holdout) > 0 {
		snap.HoldoutAccuracy = accuracy(snap, holdout)
	}

	if err := snap.check(); err != nil {
		return nil, nil, err
	}
	c.current.Store(snap)

	return &models.TrainingResult{
		ModelVersion:    snap.Version,
		Samples:         len(samples),
		GoodSamples:     good,
		BadSamples:      bad,
		TrainAccuracy:   trainAcc,
		HoldoutAccuracy: snap.HoldoutAccuracy,
		Iterations:      c.opts.Iterations,
		TrainedAt:       snap.TrainedAt,
	}, snap, nil
}

// fit runs batch gradient descent on the log-loss with L2 regularization.
func (c *Classifier) fit(ctx context.Context, snap *Snapshot, train []models.TrainingSample) error {
	n := float64(len(train))
	z := make([][]float64, len(train))
	for i, s := range train {
		z[i] = make([]float64, c.dim)
		for j, v := range s.Features {
			z[i][j] = standardize(v, snap.Means[j], snap.StdDevs[j])
		}
	}

	gradW := make([]float64, c.dim)
	for it := 0; it < c.opts.Iterations; it++ {
		if it%50 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j := range gradW {
			gradW[j] = 0
		}
		var gradB float64
		for i, s := range train {
			lin := snap.Bias
			for j, v := range z[i] {
				lin += snap.Weights[j] * v
			}
			diff := sigmoid(lin) - label(s)
			for j, v := range z[i] {
				gradW[j] += diff * v
			}
			gradB += diff
		}
		for j := range snap.Weights {
			snap.Weights[j] -= c.opts.LearningRate * (gradW[j]/n + c.opts.L2*snap.Weights[j])
		}
		snap.Bias -= c.opts.LearningRate * gradB / n
	}
	return nil
}

func split(samples []models.TrainingSample, every int) (train, holdout []models.TrainingSample) {
	if every <= 1 {
		return samples, nil
	}
	for i, s := range samples {
		if i%every == every-1 {
			holdout = append(holdout, s)
		} else {
			train = append(train, s)
		}
	}
	return train, holdout
}

func label(s models.TrainingSample) float64 {
	if s.Good {
		return 1
	}
	return 0
}

func accuracy(snap *Snapshot, samples []models.TrainingSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	hits := 0
	for _, s := range samples {
		p, err := snap.probability(s.Features)
		if err != nil {
			continue
		}
		if (p >= 0.5) == s.Good {
			hits++
		}
	}
	return float64(hits) / float64(len(samples))
}
