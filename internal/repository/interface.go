package repository

import (
	"context"
	"errors"

	"github.com/m-atharkhan/FrClass/internal/domain"
)

var (
	ErrEmptyMessage  = errors.New("message body is empty and no attachment is present")
	ErrPollNotFound  = errors.New("poll not found")
	ErrAlreadyVoted  = errors.New("voter already has a recorded vote for this poll")
	ErrInvalidOption = errors.New("option index out of range")
)

// MessageRepository is the append-only, per-room ordered chat log.
type MessageRepository interface {
	// Append persists a message, assigning the next message ID for the
	// room and a server-side timestamp. Returns ErrEmptyMessage when the
	// body is blank and no attachment is present.
	Append(ctx context.Context, roomID, senderID, senderName, body, attachmentURL string) (*domain.ChatMessage, error)

	// History returns up to limit messages with ID greater than
	// afterMessageID, oldest first. The second result reports whether
	// more messages remain past the page.
	History(ctx context.Context, roomID string, afterMessageID int64, limit int) ([]domain.ChatMessage, bool, error)
}

// PollRepository stores polls and owns the one-vote-per-voter ledger.
type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, pollID string) (*domain.Poll, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.Poll, error)
	Delete(ctx context.Context, pollID string) error

	// CastVote records the voter's choice as a single atomic step:
	// bounds check, uniqueness-enforced insert, and option counter bump
	// all commit together or not at all. Fails with ErrAlreadyVoted or
	// ErrInvalidOption without mutating state.
	CastVote(ctx context.Context, pollID, voterID string, optionIndex int) (*domain.Vote, error)

	// CountVotes returns the number of recorded votes for the poll.
	CountVotes(ctx context.Context, pollID string) (int64, error)
}
