package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// OptionList stores a poll's options as a JSON column so the embedded
// per-option counters travel with the poll row and can be updated inside
// the vote transaction. Works across postgres, mysql and sqlite.
type OptionList []PollOption

// Scan implements the sql.Scanner interface.
func (o *OptionList) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return errors.New("OptionList: unsupported scan type")
	}
}

// Value implements the driver.Valuer interface.
func (o OptionList) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// MessageModel is the GORM model for the messages table. The composite
// primary key (room_id, message_id) doubles as the uniqueness backstop for
// the per-room sequence.
type MessageModel struct {
	RoomID        string    `gorm:"type:varchar(36);primaryKey"`
	MessageID     int64     `gorm:"primaryKey;autoIncrement:false"`
	SenderID      string    `gorm:"type:varchar(36);index;not null"`
	SenderName    string    `gorm:"type:varchar(50);not null"`
	Body          string    `gorm:"type:text"`
	AttachmentURL string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain ChatMessage.
func (m *MessageModel) ToDomain() *ChatMessage {
	return &ChatMessage{
		MessageID:     m.MessageID,
		RoomID:        m.RoomID,
		SenderID:      m.SenderID,
		SenderName:    m.SenderName,
		Body:          m.Body,
		AttachmentURL: m.AttachmentURL,
		CreatedAt:     m.CreatedAt,
	}
}

// RoomCounterModel holds the next message ID per room. The row is locked
// FOR UPDATE inside the append transaction so concurrent appends to one
// room serialize without cross-room interference.
type RoomCounterModel struct {
	RoomID        string `gorm:"type:varchar(36);primaryKey"`
	NextMessageID int64  `gorm:"not null;default:0"`
}

// TableName specifies the table name for RoomCounterModel.
func (RoomCounterModel) TableName() string {
	return "room_counters"
}

// PollModel is the GORM model for the polls table.
type PollModel struct {
	ID        string     `gorm:"type:varchar(36);primaryKey"`
	RoomID    string     `gorm:"type:varchar(36);index;not null"`
	Question  string     `gorm:"type:text;not null"`
	Options   OptionList `gorm:"type:text;not null"`
	CreatorID string     `gorm:"type:varchar(36);not null"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

// TableName specifies the table name for PollModel.
func (PollModel) TableName() string {
	return "polls"
}

// ToDomain converts PollModel to domain Poll.
func (m *PollModel) ToDomain() *Poll {
	return &Poll{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Question:  m.Question,
		Options:   []PollOption(m.Options),
		CreatorID: m.CreatorID,
		CreatedAt: m.CreatedAt,
	}
}

// VoteModel is the GORM model for the votes table. The composite primary
// key (poll_id, voter_id) is what makes a cast atomic: the insert either
// succeeds once or fails with a duplicate-key error.
type VoteModel struct {
	PollID      string    `gorm:"type:varchar(36);primaryKey"`
	VoterID     string    `gorm:"type:varchar(36);primaryKey"`
	OptionIndex int       `gorm:"not null"`
	CastAt      time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for VoteModel.
func (VoteModel) TableName() string {
	return "votes"
}

// ToDomain converts VoteModel to domain Vote.
func (m *VoteModel) ToDomain() *Vote {
	return &Vote{
		PollID:      m.PollID,
		VoterID:     m.VoterID,
		OptionIndex: m.OptionIndex,
		CastAt:      m.CastAt,
	}
}
