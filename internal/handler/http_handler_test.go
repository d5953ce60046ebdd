package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/m-atharkhan/FrClass/internal/cache"
	"github.com/m-atharkhan/FrClass/internal/client"
	"github.com/m-atharkhan/FrClass/internal/domain"
	"github.com/m-atharkhan/FrClass/internal/events"
	"github.com/m-atharkhan/FrClass/internal/repository"
	"github.com/m-atharkhan/FrClass/internal/service"
	"github.com/m-atharkhan/FrClass/pkg/jwt"
	"github.com/m-atharkhan/FrClass/pkg/middleware"
)

type silentBroadcaster struct{}

func (silentBroadcaster) Publish(roomID string, event interface{}) error { return nil }

type fixture struct {
	router *gin.Engine
	tokens *jwt.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	tokens := jwt.NewManager("test-secret", time.Hour, "frclass")

	chatSvc := service.NewChatService(repository.NewGormMessageRepository(db), silentBroadcaster{}, events.NewNoopProducer())
	pollSvc := service.NewPollService(repository.NewGormPollRepository(db), cache.NewNoopResultsCache())

	h := NewHandler(chatSvc, pollSvc, client.AllowAllChecker{}, nil, middleware.NewAuthMiddleware(tokens))

	r := gin.New()
	h.RegisterRoutes(r)

	return &fixture{router: r, tokens: tokens}
}

func (f *fixture) request(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := f.tokens.Generate(userID, userID+"@school.test", userID, nil)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad envelope: %v (%s)", err, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("bad data: %v (%s)", err, envelope.Data)
		}
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/api/v1/rooms/room-1/messages", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSendAndReadMessages(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/v1/rooms/room-1/messages", "alice", domain.SendMessageRequest{Body: "hello class"})
	if w.Code != http.StatusCreated {
		t.Fatalf("send status = %d: %s", w.Code, w.Body.String())
	}
	var msg domain.ChatMessage
	decodeData(t, w, &msg)
	if msg.MessageID != 1 || msg.SenderID != "alice" {
		t.Errorf("unexpected message: %+v", msg)
	}

	w = f.request(t, http.MethodGet, "/api/v1/rooms/room-1/messages", "bob", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var history domain.ChatHistoryResponse
	decodeData(t, w, &history)
	if len(history.Messages) != 1 || history.NextCursor != 1 {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestSendEmptyMessageRejected(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/v1/rooms/room-1/messages", "alice", domain.SendMessageRequest{Body: "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestPollLifecycleOverREST(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/v1/rooms/room-1/polls", "teacher", domain.CreatePollRequest{
		Question: "quiz today?",
		Options:  []string{"yes", "no"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var poll domain.Poll
	decodeData(t, w, &poll)

	// First vote accepted, second conflicts.
	zero := 0
	w = f.request(t, http.MethodPost, "/api/v1/polls/"+poll.ID+"/votes", "student", domain.CastVoteRequest{OptionIndex: &zero})
	if w.Code != http.StatusCreated {
		t.Fatalf("vote status = %d: %s", w.Code, w.Body.String())
	}
	one := 1
	w = f.request(t, http.MethodPost, "/api/v1/polls/"+poll.ID+"/votes", "student", domain.CastVoteRequest{OptionIndex: &one})
	if w.Code != http.StatusConflict {
		t.Errorf("second vote status = %d, want 409: %s", w.Code, w.Body.String())
	}

	w = f.request(t, http.MethodGet, "/api/v1/polls/"+poll.ID+"/results", "student", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("results status = %d", w.Code)
	}
	var results domain.PollResults
	decodeData(t, w, &results)
	if results.TotalVotes != 1 || results.Results[0].Percentage != "100.00%" {
		t.Errorf("unexpected results: %+v", results)
	}

	// Only the creator may delete.
	w = f.request(t, http.MethodDelete, "/api/v1/polls/"+poll.ID, "student", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("delete by non-creator status = %d, want 403", w.Code)
	}
	w = f.request(t, http.MethodDelete, "/api/v1/polls/"+poll.ID, "teacher", nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete by creator status = %d, want 200", w.Code)
	}
}

func TestVoteValidation(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodPost, "/api/v1/rooms/room-1/polls", "teacher", domain.CreatePollRequest{
		Question: "pick",
		Options:  []string{"a", "b"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var poll domain.Poll
	decodeData(t, w, &poll)

	out := 5
	w = f.request(t, http.MethodPost, "/api/v1/polls/"+poll.ID+"/votes", "s1", domain.CastVoteRequest{OptionIndex: &out})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range vote status = %d, want 400", w.Code)
	}

	zero := 0
	w = f.request(t, http.MethodPost, "/api/v1/polls/no-such-poll/votes", "s1", domain.CastVoteRequest{OptionIndex: &zero})
	if w.Code != http.StatusNotFound {
		t.Errorf("vote on missing poll status = %d, want 404", w.Code)
	}
}

func TestCreatePollValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  domain.CreatePollRequest
	}{
		{"one option", domain.CreatePollRequest{Question: "q", Options: []string{"only"}}},
		{"no question", domain.CreatePollRequest{Options: []string{"a", "b"}}},
		{"blank option", domain.CreatePollRequest{Question: "q", Options: []string{"a", ""}}},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := fmt.Sprintf("/api/v1/rooms/room-%d/polls", i)
			w := f.request(t, http.MethodPost, path, "teacher", tc.req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHealthIsPublic(t *testing.T) {
	f := newFixture(t)

	w := f.request(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}
