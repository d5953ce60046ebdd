package service

import (
	"context"
	"errors"

	"github.com/m-atharkhan/FrClass/internal/domain"
)

var (
	ErrForbidden     = errors.New("only the poll creator may delete it")
	ErrTooFewOptions = errors.New("a poll needs at least two options")
)

// Broadcaster delivers an event to every session present in a room. The
// hub implements it; tests substitute a fake.
type Broadcaster interface {
	Publish(roomID string, event interface{}) error
}

// ChatService owns message sending and history reads.
type ChatService interface {
	// Send appends the message to the room's log, then fans it out to
	// connected sessions and publishes it for downstream consumers.
	// Fan-out and event publication are best effort: once the append
	// commits, Send succeeds.
	Send(ctx context.Context, roomID, senderID, senderName string, req *domain.SendMessageRequest) (*domain.ChatMessage, error)

	// History returns a forward page of room history, oldest first.
	History(ctx context.Context, roomID string, after int64, limit int) (*domain.ChatHistoryResponse, error)
}

// PollService owns poll lifecycle, vote casting and aggregation.
type PollService interface {
	CreatePoll(ctx context.Context, roomID, creatorID string, req *domain.CreatePollRequest) (*domain.Poll, error)
	GetPoll(ctx context.Context, pollID string) (*domain.Poll, error)
	ListPolls(ctx context.Context, roomID string) ([]domain.Poll, error)
	DeletePoll(ctx context.Context, pollID, userID string) error
	CastVote(ctx context.Context, pollID, voterID string, optionIndex int) (*domain.Vote, error)
	Results(ctx context.Context, pollID string) (*domain.PollResults, error)
}
