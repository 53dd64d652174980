package repository

import (
	"context"
	"fmt"
	"time"

	"SentiFlow/internal/domain/repository"
	"SentiFlow/pkg/cache"
)

// CacheDedupIndex implements DedupIndex on a cache.Service. The TTL on each
// recorded id is the dedup horizon; entries age out without bookkeeping.
type CacheDedupIndex struct {
	cache cache.Service
}

// NewCacheDedupIndex creates a dedup index backed by the given cache.
func NewCacheDedupIndex(c cache.Service) repository.DedupIndex {
	return &CacheDedupIndex{cache: c}
}

// Seen records id and reports whether it was already present within the ttl.
// TryLock is SETNX-with-TTL underneath, so the check-and-set is atomic.
func (d *CacheDedupIndex) Seen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	acquired, err := d.cache.TryLock(ctx, cache.GenerateKey("dedup", id), ttl)
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return !acquired, nil
}
