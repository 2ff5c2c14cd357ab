package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"ms-booking/internal/config"
	bookingkafka "ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
	sent []kafka.Message
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.sent = append(m.sent, msgs...)
	args := m.Called(ctx, len(msgs))
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

var topics = config.TopicConfig{
	OrderCreated:       "artipol.order.created",
	OrderStatusChanged: "artipol.order.status",
	TransactionUpdated: "artipol.transaction.updated",
}

func TestPublishOrderCreated(t *testing.T) {
	w := new(MockWriter)
	w.On("WriteMessages", mock.Anything, 1).Return(nil)
	p := bookingkafka.NewProducerWithWriter(w, topics, logger.NewWithWriter(io.Discard))

	order := models.Order{ID: "ART-1234", Status: models.OrderPaid, Total: decimal.RequireFromString("315.90")}
	require.NoError(t, p.PublishOrderCreated(context.Background(), order))

	require.Len(t, w.sent, 1)
	msg := w.sent[0]
	assert.Equal(t, "artipol.order.created", msg.Topic)
	assert.Equal(t, "ART-1234", string(msg.Key))

	var event bookingkafka.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "order_created", event.Type)
	assert.Equal(t, "ART-1234", event.Order.ID)
	assert.True(t, event.Order.Total.Equal(decimal.RequireFromString("315.9")))
	w.AssertExpectations(t)
}

func TestPublishStatusAndTransaction(t *testing.T) {
	w := new(MockWriter)
	w.On("WriteMessages", mock.Anything, 1).Return(nil)
	p := bookingkafka.NewProducerWithWriter(w, topics, logger.NewWithWriter(io.Discard))
	ctx := context.Background()

	require.NoError(t, p.PublishOrderStatusChanged(ctx, models.Order{ID: "ART-1", Status: models.OrderCompleted}, models.OrderPaid))
	require.NoError(t, p.PublishTransactionUpdated(ctx, models.Transaction{ID: "TX-1", Status: models.TransactionFailed}))

	require.Len(t, w.sent, 2)
	assert.Equal(t, "artipol.order.status", w.sent[0].Topic)
	assert.Equal(t, "artipol.transaction.updated", w.sent[1].Topic)

	var status bookingkafka.OrderEvent
	require.NoError(t, json.Unmarshal(w.sent[0].Value, &status))
	assert.Equal(t, models.OrderPaid, status.PreviousStatus)

	var tx bookingkafka.TransactionEvent
	require.NoError(t, json.Unmarshal(w.sent[1].Value, &tx))
	assert.Equal(t, "transaction_FAILED", tx.Type)
}

func TestPublish_WriterError(t *testing.T) {
	w := new(MockWriter)
	w.On("WriteMessages", mock.Anything, 1).Return(errors.New("broker down"))
	w.On("Close").Return(nil)
	p := bookingkafka.NewProducerWithWriter(w, topics, logger.NewWithWriter(io.Discard))

	err := p.PublishOrderCreated(context.Background(), models.Order{ID: "ART-1"})
	assert.EqualError(t, err, "broker down")
	assert.NoError(t, p.Close())
}

func TestNopPublisher(t *testing.T) {
	var p bookingkafka.NopPublisher
	ctx := context.Background()
	assert.NoError(t, p.PublishOrderCreated(ctx, models.Order{}))
	assert.NoError(t, p.PublishOrderStatusChanged(ctx, models.Order{}, models.OrderPaid))
	assert.NoError(t, p.PublishTransactionUpdated(ctx, models.Transaction{}))
	assert.NoError(t, p.Close())
}
