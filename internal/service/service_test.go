package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/m-atharkhan/FrClass/internal/cache"
	"github.com/m-atharkhan/FrClass/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&domain.MessageModel{},
		&domain.RoomCounterModel{},
		&domain.PollModel{},
		&domain.VoteModel{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

// fakeBroadcaster records published events, optionally failing.
type fakeBroadcaster struct {
	mu     sync.Mutex
	rooms  []string
	events []interface{}
	err    error
}

func (f *fakeBroadcaster) Publish(roomID string, event interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rooms = append(f.rooms, roomID)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBroadcaster) published() ([]string, []interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.rooms...), append([]interface{}(nil), f.events...)
}

// recordingCache tracks invalidations; all reads miss.
type recordingCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *recordingCache) Get(ctx context.Context, pollID string) (*domain.PollResults, error) {
	return nil, cache.ErrCacheMiss
}

func (c *recordingCache) Set(ctx context.Context, pollID string, results *domain.PollResults, ttl time.Duration) error {
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, pollID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pollID)
	return nil
}

func (c *recordingCache) Close() error { return nil }
