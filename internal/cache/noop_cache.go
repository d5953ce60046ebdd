package cache

import (
	"context"
	"time"

	"github.com/m-atharkhan/FrClass/internal/domain"
)

// NoopResultsCache is used when redis is disabled. Every Get is a miss, so
// aggregates are always recomputed from the vote ledger.
type NoopResultsCache struct{}

func NewNoopResultsCache() *NoopResultsCache {
	return &NoopResultsCache{}
}

func (c *NoopResultsCache) Get(ctx context.Context, pollID string) (*domain.PollResults, error) {
	return nil, ErrCacheMiss
}

func (c *NoopResultsCache) Set(ctx context.Context, pollID string, results *domain.PollResults, ttl time.Duration) error {
	return nil
}

func (c *NoopResultsCache) Delete(ctx context.Context, pollID string) error {
	return nil
}

func (c *NoopResultsCache) Close() error {
	return nil
}
