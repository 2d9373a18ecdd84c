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
	"microfinance-scoring/internal/scoring/rules"
	"microfinance-scoring/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Score returns the current score of a subject. A nil profile scores the
// stored profile. Without force, a record computed from the same profile
// inside the staleness window is returned unchanged.
func (e *Engine) Score(ctx context.Context, subjectID string, profile *models.ApplicantProfile, force bool) (*models.ScoreRecord, error) {
	ctx, span := e.deps.Obs.StartSpan(ctx, "engine.score",
		attribute.String("subject.id", subjectID), attribute.Bool("force", force))
	defer span.End()

	if subjectID == "" {
		return nil, errors.NewInvalidInputError("subjectId is required")
	}

	profile, err := e.resolveProfile(ctx, subjectID, profile)
	if err != nil {
		return nil, err
	}
	fp := features.Fingerprint(profile)

	if !force {
		if rec := e.cached(ctx, subjectID, fp); rec != nil {
			return rec, nil
		}
	}

	key := fmt.Sprintf("%s|%s|%t", subjectID, fp, force)
	v, err, _ := e.flight.Do(key, func() (interface{}, error) {
		release := e.locks.lock(subjectID)
		defer release()
		return e.scoreLocked(ctx, subjectID, profile, fp, force)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ScoreRecord), nil
}

func (e *Engine) resolveProfile(ctx context.Context, subjectID string, profile *models.ApplicantProfile) (*models.ApplicantProfile, error) {
	if profile == nil {
		stored, err := e.deps.Store.GetProfile(ctx, subjectID)
		if err != nil {
			return nil, e.storeError("get profile", subjectID, err)
		}
		return stored, nil
	}

	profile = profile.Clone()
	if profile.SubjectID == "" {
		profile.SubjectID = subjectID
	}
	if profile.SubjectID != subjectID {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("profile subjectId %q does not match %q", profile.SubjectID, subjectID))
	}
	if err := features.Validate(profile); err != nil {
		return nil, err
	}
	if err := e.deps.Store.SaveProfile(ctx, profile); err != nil {
		return nil, errors.NewDatabaseQueryError("save profile", err)
	}
	return profile, nil
}

func (e *Engine) cached(ctx context.Context, subjectID, fingerprint string) *models.ScoreRecord {
	if e.deps.Cache == nil {
		return nil
	}
	entry, err := e.deps.Cache.Get(ctx, subjectID)
	switch {
	case err == nil:
	case stderrors.Is(err, store.ErrCacheMiss):
		metrics.ScoreCacheRequests.WithLabelValues("miss").Inc()
		return nil
	default:
		metrics.ScoreCacheRequests.WithLabelValues("error").Inc()
		e.log.Warn("score cache read failed", map[string]interface{}{
			"subjectId": subjectID,
			"error":     err.Error(),
		})
		return nil
	}

	if entry.Result == nil || entry.CacheKey != fingerprint || e.now().Sub(entry.ComputedAt) > e.cfg.CacheTTL {
		metrics.ScoreCacheRequests.WithLabelValues("stale").Inc()
		return nil
	}
	metrics.ScoreCacheRequests.WithLabelValues("hit").Inc()
	return entry.Result
}

func (e *Engine) scoreLocked(ctx context.Context, subjectID string, profile *models.ApplicantProfile, fp string, force bool) (*models.ScoreRecord, error) {
	for attempt := 0; ; attempt++ {
		prev, err := e.current(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		if !force && prev != nil && prev.ProfileFingerprint == fp && prev.Age(e.now()) <= e.cfg.Staleness {
			return prev, nil
		}

		rec, err := e.compute(ctx, profile, models.SourceFullRecompute, nil)
		if err != nil {
			return nil, err
		}

		err = e.commit(ctx, prev, rec)
		if err == nil {
			return rec, nil
		}
		if !stderrors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= 1 {
			return nil, errors.NewConcurrentUpdateConflictError(subjectID, err)
		}
		e.log.Warn("score version conflict, retrying against fresh state", map[string]interface{}{
			"subjectId": subjectID,
		})
	}
}

// current returns nil without error when the subject has no score yet.
func (e *Engine) current(ctx context.Context, subjectID string) (*models.ScoreRecord, error) {
	rec, err := e.deps.Store.CurrentScore(ctx, subjectID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseQueryError("current score", err)
	}
	return rec, nil
}

// compute runs the cold path: classifier or rules, calibration, amount and
// insights. Classifier failures fall back to the rules without error. pending
// is an event not yet in the store that the behaviour insights must count.
func (e *Engine) compute(ctx context.Context, profile *models.ApplicantProfile, source models.ScoreSource, pending *models.TransactionEvent) (*models.ScoreRecord, error) {
	start := time.Now()
	// Postgres keeps microseconds; a reloaded record must equal the returned one.
	now := e.now().Truncate(time.Microsecond)

	n, err := features.Normalize(profile)
	if err != nil {
		return nil, err
	}

	ruleResult := rules.Score(profile, n)
	cal := calibration.FromRulePoints(ruleResult.Points)
	rulePoints := ruleResult.Points

	var probability *float64
	var modelVersion string
	if clf := e.deps.Classifier; clf.IsAvailable() {
		p, err := clf.Predict(n.Vector())
		if err != nil {
			e.log.Warn("classifier prediction failed, using rule-based scorer", map[string]interface{}{
				"subjectId": profile.SubjectID,
				"error":     errors.NewClassifierUnavailableError(err).Details,
			})
		} else {
			cal = calibration.FromProbability(p)
			probability = &p
			if snap := clf.Current(); snap != nil {
				modelVersion = snap.Version
			}
		}
	}

	events, err := e.recentEvents(ctx, profile.SubjectID, now, pending)
	if err != nil {
		return nil, err
	}

	details := insights.Details(n, insights.AnalyzeBehaviour(events, now, e.cfg.TrailingWindow))
	details.RulePoints = &rulePoints
	details.ProbabilityGood = probability
	details.ModelVersion = modelVersion
	if f, ok := ruleResult.Dominant(); ok {
		details.DominantFactor = f.Name
	}

	eligible := amount.Calculate(amount.Input{
		Score:         cal.Score,
		MonthlyIncome: n.MonthlyIncome,
		DebtRatioPct:  n.DebtRatioPct,
		Product:       ruleResult.Product,
	})

	rec := &models.ScoreRecord{
		ID:                 uuid.NewString(),
		SubjectID:          profile.SubjectID,
		Score:              cal.Score,
		Score850:           cal.Score850,
		RiskTier:           cal.RiskTier,
		ModelType:          cal.ModelType,
		Confidence:         cal.Confidence,
		EligibleAmount:     eligible,
		ProductType:        ruleResult.Product,
		Source:             source,
		ComputedAt:         now,
		Details:            details,
		Recommendations:    insights.Recommendations(profile, n, cal.Score),
		ProfileFingerprint: features.Fingerprint(profile),
	}

	metrics.ScoreComputations.WithLabelValues(string(rec.ModelType), string(source)).Inc()
	metrics.ScoreComputeDuration.WithLabelValues(string(source)).Observe(time.Since(start).Seconds())
	return rec, nil
}

// recentEvents lists the trailing window of events ending at now, plus pending.
func (e *Engine) recentEvents(ctx context.Context, subjectID string, now time.Time, pending *models.TransactionEvent) ([]models.TransactionEvent, error) {
	events, err := e.deps.Store.ListEvents(ctx, subjectID, now.Add(-e.cfg.TrailingWindow))
	if err != nil {
		return nil, errors.NewDatabaseQueryError("list events", err)
	}
	if pending != nil {
		events = append(events, *pending)
	}
	return events, nil
}

// commit appends rec as the version after prev and runs the post-write hooks.
func (e *Engine) commit(ctx context.Context, prev, rec *models.ScoreRecord) error {
	return e.commitWith(ctx, prev, rec, "append score", func(ctx context.Context) error {
		return e.deps.Store.AppendScore(ctx, rec)
	})
}

// commitWith numbers rec as the version after prev, persists it with write
// and runs the post-write hooks. Hook failures are logged and never undo the
// write. Version conflicts and repeated events are returned unwrapped.
func (e *Engine) commitWith(ctx context.Context, prev, rec *models.ScoreRecord, op string, write func(context.Context) error) error {
	rec.Version = 1
	if prev != nil {
		rec.Version = prev.Version + 1
	}

	if err := write(ctx); err != nil {
		switch {
		case stderrors.Is(err, store.ErrVersionConflict):
			metrics.ScoreCommitConflicts.Inc()
			return err
		case stderrors.Is(err, store.ErrDuplicateEvent):
			return err
		}
		return errors.NewDatabaseQueryError(op, err)
	}

	metrics.ScoreDistribution.WithLabelValues(string(rec.ProductType)).Observe(rec.Score)
	if prev != nil {
		e.deps.Obs.RecordScoreDelta(ctx, string(rec.Source), rec.Score-prev.Score)
	}

	if e.deps.Cache != nil {
		entry := &models.ScoreCacheEntry{
			SubjectID:  rec.SubjectID,
			CacheKey:   rec.ProfileFingerprint,
			Result:     rec,
			ComputedAt: rec.ComputedAt,
		}
		if err := e.deps.Cache.Put(ctx, entry, e.cfg.CacheTTL); err != nil {
			e.log.Warn("score cache write failed", map[string]interface{}{
				"subjectId": rec.SubjectID,
				"error":     err.Error(),
			})
		}
	}

	if e.deps.Search != nil {
		if err := e.deps.Search.IndexScore(ctx, rec); err != nil {
			e.log.Warn("score indexing failed", map[string]interface{}{
				"subjectId": rec.SubjectID,
				"version":   rec.Version,
				"error":     err.Error(),
			})
		}
	}

	if e.deps.Notifier != nil {
		e.deps.Notifier.ScoreChanged(ctx, prev, rec)
	}

	e.log.Info("score committed", map[string]interface{}{
		"subjectId": rec.SubjectID,
		"version":   rec.Version,
		"score":     rec.Score,
		"riskTier":  string(rec.RiskTier),
		"modelType": string(rec.ModelType),
		"source":    string(rec.Source),
	})
	return nil
}

func (e *Engine) storeError(op, subjectID string, err error) error {
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NewSubjectNotFoundError(subjectID)
	}
	return errors.NewDatabaseQueryError(op, err)
}
