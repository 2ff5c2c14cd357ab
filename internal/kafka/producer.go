package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderEvent struct {
	Type           string             `json:"type"`
	Order          models.Order       `json:"order"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

type TransactionEvent struct {
	Type        string             `json:"type"`
	Transaction models.Transaction `json:"transaction"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
	now    func() time.Time
}

// NewProducer builds a producer writing to every lifecycle topic through a
// single writer; the topic is set per message.
func NewProducer(brokers []string, topics config.TopicConfig, l *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewProducerWithWriter(writer, topics, l)
}

func NewProducerWithWriter(w MessageWriter, topics config.TopicConfig, l *logger.Logger) *Producer {
	return &Producer{Writer: w, Topics: topics, Logger: l, now: time.Now}
}

// PublishOrderCreated streams the order creation event to Kafka
func (p *Producer) PublishOrderCreated(ctx context.Context, order models.Order) error {
	return p.publish(ctx, p.Topics.OrderCreated, order.ID, OrderEvent{
		Type:       "order_created",
		Order:      order,
		OccurredAt: p.now().UTC(),
	})
}

// PublishOrderStatusChanged streams a status change, including admin overrides
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order models.Order, previous models.OrderStatus) error {
	return p.publish(ctx, p.Topics.OrderStatusChanged, order.ID, OrderEvent{
		Type:           "order_status_changed",
		Order:          order,
		PreviousStatus: previous,
		OccurredAt:     p.now().UTC(),
	})
}

// PublishTransactionUpdated streams every transaction status change
func (p *Producer) PublishTransactionUpdated(ctx context.Context, tx models.Transaction) error {
	return p.publish(ctx, p.Topics.TransactionUpdated, tx.ID, TransactionEvent{
		Type:        "transaction_" + string(tx.Status),
		Transaction: tx,
		OccurredAt:  p.now().UTC(),
	})
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload interface{}) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, key)

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NopPublisher discards every event; it is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, models.Order) error { return nil }

func (NopPublisher) PublishOrderStatusChanged(context.Context, models.Order, models.OrderStatus) error {
	return nil
}

func (NopPublisher) PublishTransactionUpdated(context.Context, models.Transaction) error { return nil }

func (NopPublisher) Close() error { return nil }
