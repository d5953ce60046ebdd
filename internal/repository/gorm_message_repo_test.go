package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestAppendAssignsSequentialIDs(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		msg, err := repo.Append(ctx, "room-1", "user-1", "alice", "hello", "")
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
		if msg.MessageID != int64(i) {
			t.Errorf("message %d: got ID %d", i, msg.MessageID)
		}
		if msg.CreatedAt.IsZero() {
			t.Error("expected server-assigned timestamp")
		}
	}
}

func TestAppendSequencesArePerRoom(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.Append(ctx, "room-a", "u", "u", "first", ""); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	msg, err := repo.Append(ctx, "room-b", "u", "u", "first in b", "")
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if msg.MessageID != 1 {
		t.Errorf("room-b should start its own sequence at 1, got %d", msg.MessageID)
	}
}

func TestAppendRejectsEmptyMessage(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	cases := []struct {
		name       string
		body       string
		attachment string
		wantErr    bool
	}{
		{"empty body no attachment", "", "", true},
		{"whitespace body no attachment", "   \t\n", "", true},
		{"empty body with attachment", "", "http://files/x.png", false},
		{"body only", "hi", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Append(ctx, "room-1", "u", "u", tc.body, tc.attachment)
			if tc.wantErr && !errors.Is(err, ErrEmptyMessage) {
				t.Errorf("expected ErrEmptyMessage, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConcurrentAppendsProduceGaplessSequence(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	const writers = 4
	const perWriter = 5

	var wg sync.WaitGroup
	errCh := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := repo.Append(ctx, "room-1", "u", "u", "msg", ""); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent append failed: %v", err)
	}

	messages, hasMore, err := repo.History(ctx, "room-1", 0, writers*perWriter)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if hasMore {
		t.Error("unexpected hasMore")
	}
	if len(messages) != writers*perWriter {
		t.Fatalf("got %d messages, want %d", len(messages), writers*perWriter)
	}
	for i, msg := range messages {
		if msg.MessageID != int64(i+1) {
			t.Fatalf("gap or duplicate at position %d: ID %d", i, msg.MessageID)
		}
	}
}

func TestHistoryPagination(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := repo.Append(ctx, "room-1", "u", "u", "msg", ""); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	page, hasMore, err := repo.History(ctx, "room-1", 0, 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !hasMore {
		t.Error("expected hasMore on first page")
	}
	if len(page) != 2 || page[0].MessageID != 1 || page[1].MessageID != 2 {
		t.Fatalf("unexpected first page: %+v", page)
	}

	page, hasMore, err = repo.History(ctx, "room-1", 2, 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if hasMore {
		t.Error("unexpected hasMore on last page")
	}
	if len(page) != 3 || page[0].MessageID != 3 {
		t.Fatalf("unexpected second page: %+v", page)
	}
}

func TestHistoryEmptyRoom(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))

	messages, hasMore, err := repo.History(context.Background(), "empty-room", 0, 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(messages) != 0 || hasMore {
		t.Errorf("expected empty page, got %d messages hasMore=%v", len(messages), hasMore)
	}
}
