package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/m-atharkhan/FrClass/internal/domain"
	"github.com/m-atharkhan/FrClass/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Append persists a message with the next per-room message ID. The room's
// counter row is created on first reference and locked FOR UPDATE, so
// concurrent appends to the same room serialize and the sequence has no
// gaps or duplicates. Appends to different rooms do not contend.
func (r *GormMessageRepository) Append(ctx context.Context, roomID, senderID, senderName, body, attachmentURL string) (*domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	if strings.TrimSpace(body) == "" && attachmentURL == "" {
		return nil, ErrEmptyMessage
	}

	var model domain.MessageModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.RoomCounterModel{RoomID: roomID}).Error; err != nil {
			return err
		}

		var counter domain.RoomCounterModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&counter, "room_id = ?", roomID).Error; err != nil {
			return err
		}

		next := counter.NextMessageID + 1
		if err := tx.Model(&domain.RoomCounterModel{}).
			Where("room_id = ?", roomID).
			Update("next_message_id", next).Error; err != nil {
			return err
		}

		model = domain.MessageModel{
			RoomID:        roomID,
			MessageID:     next,
			SenderID:      senderID,
			SenderName:    senderName,
			Body:          body,
			AttachmentURL: attachmentURL,
			CreatedAt:     time.Now().UTC(),
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to append message")
		return nil, err
	}

	l.Debug().Str(log.FieldRoomID, roomID).Int64(log.FieldMessageID, model.MessageID).Msg("message appended")
	return model.ToDomain(), nil
}

// History returns messages after the given cursor, oldest first. Queries
// limit+1 rows to report whether more remain.
func (r *GormMessageRepository) History(ctx context.Context, roomID string, afterMessageID int64, limit int) ([]domain.ChatMessage, bool, error) {
	l := log.Ctx(ctx)

	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND message_id > ?", roomID, afterMessageID).
		Order("message_id ASC").
		Limit(limit + 1).
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to read history")
		return nil, false, err
	}

	hasMore := len(models) > limit
	if hasMore {
		models = models[:limit]
	}

	messages := make([]domain.ChatMessage, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}
	return messages, hasMore, nil
}
