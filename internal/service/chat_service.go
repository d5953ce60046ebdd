package service

import (
	"context"

	"github.com/m-atharkhan/FrClass/internal/domain"
	"github.com/m-atharkhan/FrClass/internal/events"
	"github.com/m-atharkhan/FrClass/internal/repository"
	"github.com/m-atharkhan/FrClass/pkg/log"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type chatService struct {
	messages    repository.MessageRepository
	broadcaster Broadcaster
	producer    events.Producer
}

// NewChatService creates the chat service.
func NewChatService(messages repository.MessageRepository, broadcaster Broadcaster, producer events.Producer) ChatService {
	return &chatService{
		messages:    messages,
		broadcaster: broadcaster,
		producer:    producer,
	}
}

func (s *chatService) Send(ctx context.Context, roomID, senderID, senderName string, req *domain.SendMessageRequest) (*domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	msg, err := s.messages.Append(ctx, roomID, senderID, senderName, req.Body, req.AttachmentURL)
	if err != nil {
		return nil, err
	}

	// The message is durable from here on. Delivery problems are logged,
	// never surfaced to the sender: offline readers catch up via history.
	if err := s.broadcaster.Publish(roomID, &domain.MessageReceivedFrame{
		Type:    domain.MsgTypeMessageReceived,
		Message: *msg,
	}); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Int64(log.FieldMessageID, msg.MessageID).Msg("failed to fan out message")
	}

	if err := s.producer.ProduceMessage(ctx, msg); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Int64(log.FieldMessageID, msg.MessageID).Msg("failed to publish message event")
	}

	return msg, nil
}

func (s *chatService) History(ctx context.Context, roomID string, after int64, limit int) (*domain.ChatHistoryResponse, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	messages, hasMore, err := s.messages.History(ctx, roomID, after, limit)
	if err != nil {
		return nil, err
	}

	nextCursor := after
	if len(messages) > 0 {
		nextCursor = messages[len(messages)-1].MessageID
	}

	return &domain.ChatHistoryResponse{
		Messages:   messages,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
