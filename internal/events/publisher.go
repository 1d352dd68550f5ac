// Package events publishes chat domain events for downstream consumers such as
// notification and analytics services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/dealersense/chat-api/internal/domain"
)

const TypeMessageCreated = "chat.message.created"

type MessageCreated struct {
	Type       string         `json:"type"`
	Message    domain.Message `json:"message"`
	OccurredAt time.Time      `json:"occurredAt"`
}

type Publisher interface {
	PublishMessageCreated(ctx context.Context, message domain.Message) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishMessageCreated(context.Context, domain.Message) error { return nil }
func (NoopPublisher) Close() error                                              { return nil }

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one record per stored message, keyed by room so a room's
// events stay in one partition and in order.
type KafkaPublisher struct {
	writer kafkaWriter
	now    func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				zap.L().Error("failed to deliver chat events", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}

	return &KafkaPublisher{writer: writer, now: time.Now}
}

func (p *KafkaPublisher) PublishMessageCreated(ctx context.Context, message domain.Message) error {
	record, err := p.encode(message)
	if err != nil {
		return err
	}

	if err = p.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("p.writer.WriteMessages -> %w", err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) encode(message domain.Message) (kafka.Message, error) {
	value, err := json.Marshal(MessageCreated{
		Type:       TypeMessageCreated,
		Message:    message,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("json.Marshal -> %w", err)
	}

	return kafka.Message{
		Key:   []byte(message.RoomID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeMessageCreated)},
		},
	}, nil
}
