package engine

import (
	"context"
	stderrors "errors"
	"time"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/metrics"
	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/classifier"
	"microfinance-scoring/internal/store"
)

// TrainClassifier fits a new classifier and publishes its snapshot. An empty
// dataset is loaded from the training-data collaborator. Scoring keeps using
// the previous model until the new one is swapped in.
func (e *Engine) TrainClassifier(ctx context.Context, samples []models.TrainingSample) (*models.TrainingResult, error) {
	ctx, span := e.deps.Obs.StartSpan(ctx, "engine.trainClassifier")
	defer span.End()

	if len(samples) == 0 && e.deps.Training != nil {
		loaded, err := e.deps.Training.TrainingSamples(ctx, e.cfg.TrainingSampleCap)
		if err != nil {
			return nil, errors.NewDatabaseQueryError("training samples", err)
		}
		samples = loaded
	}

	res, snap, err := e.deps.Classifier.Train(ctx, samples)
	if err != nil {
		if stderrors.Is(err, classifier.ErrTrainingInProgress) {
			metrics.ClassifierTrainings.WithLabelValues("busy").Inc()
			return nil, errors.NewTrainingInProgressError()
		}
		metrics.ClassifierTrainings.WithLabelValues("failed").Inc()
		e.log.Warn("classifier training failed, keeping current model", map[string]interface{}{
			"samples": len(samples),
			"error":   err.Error(),
		})
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternalError(err)
	}

	metrics.ClassifierTrainings.WithLabelValues("succeeded").Inc()
	metrics.ClassifierHoldoutAccuracy.Set(res.HoldoutAccuracy)
	e.log.Info("classifier trained", map[string]interface{}{
		"modelVersion":    res.ModelVersion,
		"samples":         res.Samples,
		"holdoutAccuracy": res.HoldoutAccuracy,
	})

	if e.deps.Snapshots != nil {
		if err := e.deps.Snapshots.SaveSnapshot(ctx, snap); err != nil {
			e.log.Warn("classifier snapshot publish failed", map[string]interface{}{
				"modelVersion": res.ModelVersion,
				"error":        err.Error(),
			})
		}
	}
	return res, nil
}

// LoadPublishedModel installs the latest published snapshot when it differs
// from the active one. It reports whether a model was installed.
func (e *Engine) LoadPublishedModel(ctx context.Context) (bool, error) {
	if e.deps.Snapshots == nil {
		return false, nil
	}
	snap, err := e.deps.Snapshots.LoadSnapshot(ctx)
	if stderrors.Is(err, store.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewCacheUnavailableError(err)
	}
	if cur := e.deps.Classifier.Current(); cur != nil && cur.Version == snap.Version {
		return false, nil
	}
	if err := e.deps.Classifier.Load(snap); err != nil {
		return false, errors.NewInternalError(err)
	}
	e.log.Info("classifier snapshot loaded", map[string]interface{}{
		"modelVersion": snap.Version,
		"trainedAt":    snap.TrainedAt,
	})
	return true, nil
}

// RunRetrainLoop retrains on every tick until ctx ends. Failures are logged
// and the previous model stays active.
func (e *Engine) RunRetrainLoop(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.TrainClassifier(ctx, nil); err != nil {
				e.log.Warn("scheduled retraining skipped", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// RunModelRefreshLoop polls for snapshots published by other replicas.
func (e *Engine) RunModelRefreshLoop(ctx context.Context, every time.Duration) {
	if every <= 0 || e.deps.Snapshots == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.LoadPublishedModel(ctx); err != nil {
				e.log.Warn("classifier snapshot refresh failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}
