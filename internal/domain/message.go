package domain

import "time"

// ChatMessage is a persisted room message. Immutable once appended; its
// MessageID is assigned by the chat log and strictly increases within a room.
type ChatMessage struct {
	MessageID     int64     `json:"message_id"`
	RoomID        string    `json:"room_id"`
	SenderID      string    `json:"sender_id"`
	SenderName    string    `json:"sender_name"`
	Body          string    `json:"body,omitempty"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SendMessageRequest is the REST body for sending a message.
// Body may be empty only when an attachment URL is present.
type SendMessageRequest struct {
	Body          string `json:"body"`
	AttachmentURL string `json:"attachment_url"`
}

// ChatHistoryResponse is a forward page of room history, oldest first.
// NextCursor is the message ID of the last entry; passing it back as
// `after` resumes the read without duplicates or holes.
type ChatHistoryResponse struct {
	Messages   []ChatMessage `json:"messages"`
	NextCursor int64         `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

// AttachmentResponse is returned after an attachment upload.
type AttachmentResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
