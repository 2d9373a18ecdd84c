package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/classifier"
	"microfinance-scoring/internal/store"
)

type memStore struct {
	mu       sync.Mutex
	profiles map[string]*models.ApplicantProfile
	events   map[string][]models.TransactionEvent
	scores   map[string][]models.ScoreRecord

	// conflicts is the number of score writes that fail with a version conflict.
	conflicts  int
	profileErr map[string]error
	samples    []models.TrainingSample
}

func newMemStore() *memStore {
	return &memStore{
		profiles:   map[string]*models.ApplicantProfile{},
		events:     map[string][]models.TransactionEvent{},
		scores:     map[string][]models.ScoreRecord{},
		profileErr: map[string]error{},
	}
}

func (s *memStore) GetProfile(_ context.Context, id string) (*models.ApplicantProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.profileErr[id]; err != nil {
		return nil, err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *memStore) SaveProfile(_ context.Context, p *models.ApplicantProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.SubjectID] = p.Clone()
	return nil
}

func (s *memStore) ListEvents(_ context.Context, id string, since time.Time) ([]models.TransactionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TransactionEvent
	for _, e := range s.events[id] {
		if !e.ActualDate.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) CurrentScore(_ context.Context, id string) (*models.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.scores[id]
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}
	rec := recs[len(recs)-1]
	return &rec, nil
}

func (s *memStore) AppendScore(_ context.Context, rec *models.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts > 0 {
		s.conflicts--
		return store.ErrVersionConflict
	}
	for _, r := range s.scores[rec.SubjectID] {
		if r.Version == rec.Version {
			return store.ErrVersionConflict
		}
	}
	s.scores[rec.SubjectID] = append(s.scores[rec.SubjectID], *rec)
	return nil
}

func (s *memStore) RecordTransaction(_ context.Context, e *models.TransactionEvent, p *models.ApplicantProfile, rec *models.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.events[e.SubjectID] {
		if old.ID == e.ID {
			return store.ErrDuplicateEvent
		}
	}
	if s.conflicts > 0 {
		s.conflicts--
		return store.ErrVersionConflict
	}
	for _, r := range s.scores[rec.SubjectID] {
		if r.Version == rec.Version {
			return store.ErrVersionConflict
		}
	}
	s.events[e.SubjectID] = append(s.events[e.SubjectID], *e)
	s.profiles[p.SubjectID] = p.Clone()
	s.scores[rec.SubjectID] = append(s.scores[rec.SubjectID], *rec)
	return nil
}

func (s *memStore) ScoreHistory(_ context.Context, id string, limit int) ([]models.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := append([]models.ScoreRecord(nil), s.scores[id]...)
	sort.Slice(recs, func(i, j int) bool { return recs[i].Version > recs[j].Version })
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *memStore) ListSubjects(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.profiles)+len(s.profileErr))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	for id := range s.profileErr {
		if _, ok := s.profiles[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *memStore) TrainingSamples(_ context.Context, _ int) ([]models.TrainingSample, error) {
	return s.samples, nil
}

func (s *memStore) versions(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scores[id])
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]models.ScoreCacheEntry
	gets    int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]models.ScoreCacheEntry{}}
}

func (c *memCache) Get(_ context.Context, id string) (*models.ScoreCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	e, ok := c.entries[id]
	if !ok {
		return nil, store.ErrCacheMiss
	}
	return &e, nil
}

func (c *memCache) Put(_ context.Context, e *models.ScoreCacheEntry, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.SubjectID] = *e
	return nil
}

type change struct {
	prev, next *models.ScoreRecord
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []change
}

func (n *recordingNotifier) ScoreChanged(_ context.Context, prev, next *models.ScoreRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change{prev, next})
}

type memSnapshots struct {
	snap *classifier.Snapshot
	err  error
}

func (m *memSnapshots) SaveSnapshot(_ context.Context, s *classifier.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.snap = s
	return nil
}

func (m *memSnapshots) LoadSnapshot(context.Context) (*classifier.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.snap == nil {
		return nil, store.ErrCacheMiss
	}
	return m.snap, nil
}

type fakeIndex struct {
	indexed []string
	result  *models.ScoringAnalytics
	err     error
}

func (f *fakeIndex) IndexScore(_ context.Context, rec *models.ScoreRecord) error {
	f.indexed = append(f.indexed, rec.ID)
	return f.err
}

func (f *fakeIndex) Analytics(context.Context, models.AnalyticsQuery) (*models.ScoringAnalytics, error) {
	return f.result, f.err
}

var errBoom = errors.New("boom")
