package cache

import (
	"context"
	"errors"
	"time"

	"github.com/m-atharkhan/FrClass/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ResultsCache caches computed poll aggregates. Entries are invalidated on
// every accepted vote so REST reads never serve stale totals for long.
type ResultsCache interface {
	Get(ctx context.Context, pollID string) (*domain.PollResults, error)
	Set(ctx context.Context, pollID string, results *domain.PollResults, ttl time.Duration) error
	Delete(ctx context.Context, pollID string) error
	Close() error
}
