package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/m-atharkhan/FrClass/internal/domain"
)

// newTestDB opens an in-memory sqlite database limited to one connection
// so concurrent transactions serialize instead of fighting over locks.
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
