package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/metrics"
	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/amount"
	"microfinance-scoring/internal/scoring/calibration"
	"microfinance-scoring/internal/scoring/features"
	"microfinance-scoring/internal/scoring/insights"
	"microfinance-scoring/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ApplyTransaction records ev and moves the subject's score by the event's
// delta. A missing or stale current score, or force, triggers a full
// recompute instead. The event, the updated profile and the new score are
// written together; an event id that was already recorded leaves the state
// untouched and returns the current score.
func (e *Engine) ApplyTransaction(ctx context.Context, subjectID string, ev *models.TransactionEvent, force bool) (*models.ScoreRecord, error) {
	ctx, span := e.deps.Obs.StartSpan(ctx, "engine.applyTransaction",
		attribute.String("subject.id", subjectID), attribute.Bool("force", force))
	defer span.End()

	if subjectID == "" {
		return nil, errors.NewInvalidInputError("subjectId is required")
	}
	if ev == nil {
		return nil, errors.NewInvalidInputError("event is required")
	}
	event := *ev
	if event.SubjectID == "" {
		event.SubjectID = subjectID
	}
	if event.SubjectID != subjectID {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("event subjectId %q does not match %q", event.SubjectID, subjectID))
	}
	if err := features.ValidateEvent(&event); err != nil {
		return nil, err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ActualDate.IsZero() {
		event.ActualDate = e.now()
	}
	span.SetAttributes(attribute.String("event.type", string(event.Type)))

	release := e.locks.lock(subjectID)
	defer release()

	before, err := e.deps.Store.GetProfile(ctx, subjectID)
	if err != nil {
		return nil, e.storeError("get profile", subjectID, err)
	}

	history, err := e.deps.Store.ListEvents(ctx, subjectID, event.ActualDate.Add(-e.cfg.TrailingWindow))
	if err != nil {
		return nil, errors.NewDatabaseQueryError("list events", err)
	}

	after := applyEvent(before, &event)
	delta := eventDelta(&event, history, before, e.cfg.TrailingWindow)

	for attempt := 0; ; attempt++ {
		prev, err := e.current(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		var rec *models.ScoreRecord
		if force || prev == nil || prev.Age(e.now()) > e.cfg.Staleness {
			rec, err = e.compute(ctx, after, models.SourceFullRecompute, &event)
			if err != nil {
				return nil, err
			}
			rec.Details.EventType = string(event.Type)
		} else {
			rec, err = e.applyDelta(ctx, prev, after, &event, delta)
			if err != nil {
				return nil, err
			}
		}

		err = e.commitWith(ctx, prev, rec, "record transaction", func(ctx context.Context) error {
			return e.deps.Store.RecordTransaction(ctx, &event, after, rec)
		})
		switch {
		case err == nil:
			ev.ID = event.ID
			e.log.Debug("transaction applied", map[string]interface{}{
				"subjectId": subjectID,
				"eventId":   event.ID,
				"eventType": string(event.Type),
				"delta":     delta,
				"source":    string(rec.Source),
			})
			return rec, nil
		case stderrors.Is(err, store.ErrDuplicateEvent):
			return e.redelivered(ctx, subjectID, event.ID)
		case !stderrors.Is(err, store.ErrVersionConflict):
			return nil, err
		case attempt >= 1:
			return nil, errors.NewConcurrentUpdateConflictError(subjectID, err)
		}
		e.log.Warn("score version conflict, retrying transaction against fresh state", map[string]interface{}{
			"subjectId": subjectID,
			"eventId":   event.ID,
		})
	}
}

// redelivered answers a repeated event with the current score.
func (e *Engine) redelivered(ctx context.Context, subjectID, eventID string) (*models.ScoreRecord, error) {
	e.log.Info("transaction already recorded", map[string]interface{}{
		"subjectId": subjectID,
		"eventId":   eventID,
	})
	cur, err := e.current(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, errors.NewDatabaseQueryError("current score",
			fmt.Errorf("event %s recorded without a score", eventID))
	}
	return cur, nil
}

// applyDelta derives the next record from prev: the 0-10 score moves by
// delta and every dependent field is recomputed from the updated profile.
func (e *Engine) applyDelta(ctx context.Context, prev *models.ScoreRecord, profile *models.ApplicantProfile, ev *models.TransactionEvent, delta float64) (*models.ScoreRecord, error) {
	n, err := features.Normalize(profile)
	if err != nil {
		return nil, err
	}
	now := e.now().Truncate(time.Microsecond)

	cal := calibration.Rederive(prev.Score+delta, prev.ModelType, prev.Confidence)

	events, err := e.recentEvents(ctx, profile.SubjectID, now, ev)
	if err != nil {
		return nil, err
	}

	details := insights.Details(n, insights.AnalyzeBehaviour(events, now, e.cfg.TrailingWindow))
	details.RulePoints = prev.Details.RulePoints
	details.ProbabilityGood = prev.Details.ProbabilityGood
	details.ModelVersion = prev.Details.ModelVersion
	details.DominantFactor = string(ev.Type)
	details.EventType = string(ev.Type)
	details.Delta = cal.Score - prev.Score

	product := prev.ProductType
	if !product.Valid() {
		product = profile.ProductType()
	}
	eligible := amount.Calculate(amount.Input{
		Score:         cal.Score,
		MonthlyIncome: n.MonthlyIncome,
		DebtRatioPct:  n.DebtRatioPct,
		Product:       product,
	})

	metrics.ScoreComputations.WithLabelValues(string(cal.ModelType), string(models.SourceTransaction)).Inc()
	return &models.ScoreRecord{
		ID:                 uuid.NewString(),
		SubjectID:          profile.SubjectID,
		Score:              cal.Score,
		Score850:           cal.Score850,
		RiskTier:           cal.RiskTier,
		ModelType:          cal.ModelType,
		Confidence:         cal.Confidence,
		EligibleAmount:     eligible,
		ProductType:        product,
		Source:             models.SourceTransaction,
		ComputedAt:         now,
		Details:            details,
		Recommendations:    insights.Recommendations(profile, n, cal.Score),
		ProfileFingerprint: features.Fingerprint(profile),
	}, nil
}

