// Package cache keeps short-lived score results and the published classifier
// snapshot in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"microfinance-scoring/internal/models"
	"microfinance-scoring/internal/scoring/classifier"
	"microfinance-scoring/internal/store"

	"github.com/redis/go-redis/v9"
)

const (
	scoreKeyPrefix     = "score:result:"
	DefaultSnapshotKey = "scoring:classifier:snapshot"
)

type Redis struct {
	rdb         redis.Cmdable
	snapshotKey string
}

func New(rdb redis.Cmdable, snapshotKey string) *Redis {
	if snapshotKey == "" {
		snapshotKey = DefaultSnapshotKey
	}
	return &Redis{rdb: rdb, snapshotKey: snapshotKey}
}

func scoreKey(subjectID string) string {
	return scoreKeyPrefix + subjectID
}

// Get returns store.ErrCacheMiss when nothing is cached for the subject.
func (r *Redis) Get(ctx context.Context, subjectID string) (*models.ScoreCacheEntry, error) {
	raw, err := r.rdb.Get(ctx, scoreKey(subjectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", subjectID, err)
	}
	var entry models.ScoreCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", subjectID, err)
	}
	return &entry, nil
}

func (r *Redis) Put(ctx context.Context, entry *models.ScoreCacheEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := r.rdb.Set(ctx, scoreKey(entry.SubjectID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache put %s: %w", entry.SubjectID, err)
	}
	return nil
}

// Invalidate drops the cached result of a subject.
func (r *Redis) Invalidate(ctx context.Context, subjectID string) error {
	return r.rdb.Del(ctx, scoreKey(subjectID)).Err()
}

// SaveSnapshot publishes snap for every worker replica. It has no expiry.
func (r *Redis) SaveSnapshot(ctx context.Context, snap *classifier.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := r.rdb.Set(ctx, r.snapshotKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	return nil
}

func (r *Redis) LoadSnapshot(ctx context.Context) (*classifier.Snapshot, error) {
	raw, err := r.rdb.Get(ctx, r.snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	var snap classifier.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	return &snap, nil
}
