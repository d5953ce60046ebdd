package events

import (
	"context"

	"github.com/m-atharkhan/FrClass/internal/domain"
)

// Producer publishes persisted chat messages for downstream consumers
// (search indexing, moderation, analytics). Publishing is best effort and
// happens only after the message has committed to the chat log.
type Producer interface {
	ProduceMessage(ctx context.Context, msg *domain.ChatMessage) error
	Close() error
}
