// Package store holds the sentinel errors shared by the persistence, cache and
// search adapters.
package store

import "errors"

var (
	ErrNotFound        = errors.New("store: not found")
	ErrVersionConflict = errors.New("store: score version already exists")
	ErrCacheMiss       = errors.New("store: cache miss")
	ErrDuplicateEvent  = errors.New("store: event already recorded")
)
