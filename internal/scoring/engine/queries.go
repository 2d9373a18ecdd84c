package engine

import (
	"context"
	"sync"
	"time"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// MaxHistoryLimit bounds a single history page.
const MaxHistoryLimit = 500

// History returns the subject's score records, newest first.
func (e *Engine) History(ctx context.Context, subjectID string, limit int) ([]models.ScoreRecord, error) {
	ctx, span := e.deps.Obs.StartSpan(ctx, "engine.history", attribute.String("subject.id", subjectID))
	defer span.End()

	if subjectID == "" {
		return nil, errors.NewInvalidInputError("subjectId is required")
	}
	if limit <= 0 {
		limit = e.cfg.HistoryDefaultSize
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	recs, err := e.deps.Store.ScoreHistory(ctx, subjectID, limit)
	if err != nil {
		return nil, errors.NewDatabaseQueryError("score history", err)
	}
	if len(recs) == 0 {
		if _, err := e.deps.Store.GetProfile(ctx, subjectID); err != nil {
			return nil, e.storeError("get profile", subjectID, err)
		}
	}
	return recs, nil
}

// Analytics aggregates indexed score records.
func (e *Engine) Analytics(ctx context.Context, q models.AnalyticsQuery) (*models.ScoringAnalytics, error) {
	ctx, span := e.deps.Obs.StartSpan(ctx, "engine.analytics", attribute.String("product.type", string(q.ProductType)))
	defer span.End()

	if q.ProductType != "" && !q.ProductType.Valid() {
		return nil, errors.NewUnknownProductTypeError(string(q.ProductType))
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, errors.NewInvalidInputError("to must not be before from")
	}
	if e.deps.Search == nil {
		return nil, errors.NewSearchQueryError("analytics", errSearchDisabled)
	}

	res, err := e.deps.Search.Analytics(ctx, q)
	if err != nil {
		return nil, errors.NewSearchQueryError("analytics", err)
	}
	return res, nil
}

// RecalculateAll force-recomputes up to limit stored subjects (0 means all).
// Per-subject failures are collected in the report and do not stop the batch.
func (e *Engine) RecalculateAll(ctx context.Context, limit int) (*models.RecalculationReport, error) {
	ctx, span := e.deps.Obs.StartSpan(ctx, "engine.recalculateAll")
	defer span.End()

	start := time.Now()
	subjects, err := e.deps.Store.ListSubjects(ctx, limit)
	if err != nil {
		return nil, errors.NewDatabaseQueryError("list subjects", err)
	}

	report := &models.RecalculationReport{Total: len(subjects), Failed: map[string]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.RecalcConcurrency)
	for _, id := range subjects {
		g.Go(func() error {
			_, err := e.Score(gctx, id, nil, true)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[id] = err.Error()
				return nil
			}
			report.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	e.log.Info("bulk recalculation finished", map[string]interface{}{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    len(report.Failed),
		"duration":  report.Duration.String(),
	})
	return report, nil
}
