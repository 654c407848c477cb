package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"opsengine/internal/domain"
	"opsengine/pkg/crypto"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes signed decision events, keyed by ticket id so every
// decision for a ticket lands on the same partition.
type Producer struct {
	writer messageWriter
	signer *crypto.Signer
	logger *slog.Logger
}

func NewProducer(brokers []string, topic string, signer *crypto.Signer, logger *slog.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}, signer, logger)
}

func newProducer(writer messageWriter, signer *crypto.Signer, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		writer: writer,
		signer: signer,
		logger: logger,
	}
}

func (p *Producer) PublishDecision(ctx context.Context, event domain.DecisionEvent) error {
	if p.signer != nil {
		event.Signature = p.signer.SignDecision(event)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode decision event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TicketID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "outcome", Value: []byte(event.Outcome)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write decision event: %w", err)
	}

	p.logger.DebugContext(ctx, "Decision event published",
		slog.String("event_id", event.EventID),
		slog.String("ticket_id", event.TicketID))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishDecision(context.Context, domain.DecisionEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
