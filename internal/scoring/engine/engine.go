// Package engine owns the scoring operations: full scoring, incremental
// updates from transaction events, eligibility checks, classifier training
// and the read-side queries. All writes of a subject's current score go
// through a per-subject critical section.
package engine

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"microfinance-scoring/internal/common/config"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/observability"
	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/classifier"
	"microfinance-scoring/internal/scoring/features"

	"golang.org/x/sync/singleflight"
)

// Store is the persistence collaborator.
type Store interface {
	GetProfile(ctx context.Context, subjectID string) (*models.ApplicantProfile, error)
	SaveProfile(ctx context.Context, p *models.ApplicantProfile) error

	ListEvents(ctx context.Context, subjectID string, since time.Time) ([]models.TransactionEvent, error)

	CurrentScore(ctx context.Context, subjectID string) (*models.ScoreRecord, error)
	// AppendScore fails with store.ErrVersionConflict when rec.Version is taken.
	AppendScore(ctx context.Context, rec *models.ScoreRecord) error
	// RecordTransaction writes the event, the profile it produced and rec
	// atomically. It fails with store.ErrDuplicateEvent when the event id is
	// already recorded and store.ErrVersionConflict when rec.Version is taken,
	// writing nothing in either case.
	RecordTransaction(ctx context.Context, e *models.TransactionEvent, p *models.ApplicantProfile, rec *models.ScoreRecord) error
	ScoreHistory(ctx context.Context, subjectID string, limit int) ([]models.ScoreRecord, error)
	ListSubjects(ctx context.Context, limit int) ([]string, error)
}

// TrainingData supplies labelled historical samples.
type TrainingData interface {
	TrainingSamples(ctx context.Context, limit int) ([]models.TrainingSample, error)
}

type ScoreCache interface {
	Get(ctx context.Context, subjectID string) (*models.ScoreCacheEntry, error)
	Put(ctx context.Context, entry *models.ScoreCacheEntry, ttl time.Duration) error
}

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *classifier.Snapshot) error
	LoadSnapshot(ctx context.Context) (*classifier.Snapshot, error)
}

type ScoreIndex interface {
	IndexScore(ctx context.Context, rec *models.ScoreRecord) error
	Analytics(ctx context.Context, q models.AnalyticsQuery) (*models.ScoringAnalytics, error)
}

// ChangeNotifier is told about every committed score change. It must not block.
type ChangeNotifier interface {
	ScoreChanged(ctx context.Context, prev, next *models.ScoreRecord)
}

type Config struct {
	Staleness          time.Duration
	CacheTTL           time.Duration
	TrailingWindow     time.Duration
	RecalcConcurrency  int
	TrainingSampleCap  int
	HistoryDefaultSize int
}

// ConfigFrom maps the scoring section of the service configuration.
func ConfigFrom(sc config.ScoringConfig) Config {
	return Config{
		Staleness:         sc.Staleness(),
		CacheTTL:          sc.CacheTTLDuration(),
		TrailingWindow:    time.Duration(sc.TrailingWindowDays) * 24 * time.Hour,
		RecalcConcurrency: sc.RecalcConcurrency,
	}
}

func (c *Config) applyDefaults() {
	if c.Staleness <= 0 {
		c.Staleness = time.Hour
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.TrailingWindow <= 0 {
		c.TrailingWindow = 90 * 24 * time.Hour
	}
	if c.RecalcConcurrency <= 0 {
		c.RecalcConcurrency = 8
	}
	if c.HistoryDefaultSize <= 0 {
		c.HistoryDefaultSize = 20
	}
}

// Deps are the collaborators of the engine. Store, Classifier and Logger are
// required; the rest may be nil.
type Deps struct {
	Store      Store
	Training   TrainingData
	Cache      ScoreCache
	Snapshots  SnapshotStore
	Search     ScoreIndex
	Notifier   ChangeNotifier
	Classifier *classifier.Classifier
	Logger     logger.Logger
	Obs        *observability.Observability
}

type Engine struct {
	cfg  Config
	deps Deps
	log  logger.Logger

	locks  *subjectLocks
	flight singleflight.Group
	now    func() time.Time
}

func New(cfg Config, deps Deps) *Engine {
	cfg.applyDefaults()
	if deps.Classifier == nil {
		deps.Classifier = classifier.New(features.Size, classifier.DefaultOptions())
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	return &Engine{
		cfg:   cfg,
		deps:  deps,
		log:   deps.Logger,
		locks: newSubjectLocks(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Classifier exposes the adapter for readiness reporting.
func (e *Engine) Classifier() *classifier.Classifier {
	return e.deps.Classifier
}

type subjectLocks struct {
	mu    sync.Mutex
	locks map[string]*subjectLock
}

type subjectLock struct {
	mu   sync.Mutex
	refs int
}

func newSubjectLocks() *subjectLocks {
	return &subjectLocks{locks: make(map[string]*subjectLock)}
}

// lock blocks until the caller owns subjectID and returns the release func.
func (s *subjectLocks) lock(subjectID string) func() {
	s.mu.Lock()
	l, ok := s.locks[subjectID]
	if !ok {
		l = &subjectLock{}
		s.locks[subjectID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, subjectID)
		}
		s.mu.Unlock()
	}
}

var errSearchDisabled = stderrors.New("search index is not configured")
