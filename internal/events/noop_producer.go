package events

import (
	"context"

	"github.com/m-atharkhan/FrClass/internal/domain"
)

// NoopProducer is used when kafka is disabled.
type NoopProducer struct{}

func NewNoopProducer() *NoopProducer {
	return &NoopProducer{}
}

func (p *NoopProducer) ProduceMessage(ctx context.Context, msg *domain.ChatMessage) error {
	return nil
}

func (p *NoopProducer) Close() error {
	return nil
}
