package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/m-atharkhan/FrClass/internal/domain"
	"github.com/m-atharkhan/FrClass/pkg/log"
)

// GormPollRepository implements PollRepository using GORM.
type GormPollRepository struct {
	db *gorm.DB
}

// NewGormPollRepository creates a new GORM-based poll repository.
func NewGormPollRepository(db *gorm.DB) *GormPollRepository {
	return &GormPollRepository{db: db}
}

// Create persists a new poll with zeroed option counters. Assigns the poll
// ID and creation time.
func (r *GormPollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	l := log.Ctx(ctx)

	poll.ID = uuid.New().String()
	poll.CreatedAt = time.Now().UTC()

	options := make(domain.OptionList, len(poll.Options))
	for i, opt := range poll.Options {
		options[i] = domain.PollOption{Text: opt.Text}
	}

	model := domain.PollModel{
		ID:        poll.ID,
		RoomID:    poll.RoomID,
		Question:  poll.Question,
		Options:   options,
		CreatorID: poll.CreatorID,
		CreatedAt: poll.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, poll.RoomID).Msg("failed to create poll")
		return err
	}

	poll.Options = []domain.PollOption(options)
	l.Info().Str(log.FieldPollID, poll.ID).Str(log.FieldRoomID, poll.RoomID).Msg("poll created")
	return nil
}

// GetByID returns the poll with its per-option counters and total votes.
func (r *GormPollRepository) GetByID(ctx context.Context, pollID string) (*domain.Poll, error) {
	var model domain.PollModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", pollID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, err
	}

	poll := model.ToDomain()
	total, err := r.CountVotes(ctx, pollID)
	if err != nil {
		return nil, err
	}
	poll.TotalVotes = total
	return poll, nil
}

// ListByRoom returns the room's polls, newest first.
func (r *GormPollRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Poll, error) {
	var models []domain.PollModel
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	polls := make([]domain.Poll, len(models))
	for i, model := range models {
		poll := model.ToDomain()
		for _, opt := range poll.Options {
			poll.TotalVotes += opt.Votes
		}
		polls[i] = *poll
	}
	return polls, nil
}

// Delete removes the poll and its votes in one transaction.
func (r *GormPollRepository) Delete(ctx context.Context, pollID string) error {
	l := log.Ctx(ctx)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.PollModel{}, "id = ?", pollID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPollNotFound
		}
		return tx.Delete(&domain.VoteModel{}, "poll_id = ?", pollID).Error
	})
	if err != nil {
		if !errors.Is(err, ErrPollNotFound) {
			l.Error().Err(err).Str(log.FieldPollID, pollID).Msg("failed to delete poll")
		}
		return err
	}

	l.Info().Str(log.FieldPollID, pollID).Msg("poll deleted")
	return nil
}

// CastVote records the vote as one transaction: the poll row is locked,
// the option index is bounds-checked against the poll it was cast on, the
// vote row is inserted under the (poll_id, voter_id) primary key, and the
// embedded option counter is bumped. A duplicate vote trips the key
// constraint and rolls everything back, so concurrent casts by the same
// voter never double-count.
func (r *GormPollRepository) CastVote(ctx context.Context, pollID, voterID string, optionIndex int) (*domain.Vote, error) {
	l := log.Ctx(ctx)

	var vote domain.VoteModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll domain.PollModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&poll, "id = ?", pollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPollNotFound
			}
			return err
		}

		if optionIndex < 0 || optionIndex >= len(poll.Options) {
			return ErrInvalidOption
		}

		vote = domain.VoteModel{
			PollID:      pollID,
			VoterID:     voterID,
			OptionIndex: optionIndex,
			CastAt:      time.Now().UTC(),
		}
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyVoted
			}
			return err
		}

		poll.Options[optionIndex].Votes++
		return tx.Model(&domain.PollModel{}).
			Where("id = ?", pollID).
			Update("options", poll.Options).Error
	})
	if err != nil {
		return nil, err
	}

	l.Info().Str(log.FieldPollID, pollID).Str(log.FieldUserID, voterID).Int("option_index", optionIndex).Msg("vote cast")
	return vote.ToDomain(), nil
}

// CountVotes returns the number of vote rows for the poll.
func (r *GormPollRepository) CountVotes(ctx context.Context, pollID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.VoteModel{}).
		Where("poll_id = ?", pollID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
