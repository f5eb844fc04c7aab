package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"slabdesk/internal/config"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockPublishMetrics struct {
	mock.Mock
}

func (m *MockPublishMetrics) RecordKafkaPublish(topic, eventType string, success bool) {
	m.Called(topic, eventType, success)
}

func testConfig() *config.Config {
	return &config.Config{
		KafkaTopicStock: "slabs.stock",
		KafkaTopicLinks: "slabs.links",
		KafkaRetries:    3,
	}
}

func header(msg *sarama.ProducerMessage, key string) string {
	for _, h := range msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaEventPublisher_PublishTransfer(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "slabs.stock", msg.Topic)
		assert.Equal(t, TypeStatusTransferred, header(msg, "event-type"))
		assert.NotEmpty(t, header(msg, "event-id"))
		assert.NotEmpty(t, header(msg, "timestamp"))

		key, err := msg.Key.Encode()
		assert.NoError(t, err)
		assert.Equal(t, "b-1", string(key))

		value, err := msg.Value.Encode()
		assert.NoError(t, err)
		var body StatusTransferredEvent
		assert.NoError(t, json.Unmarshal(value, &body))
		assert.Equal(t, 3, body.Quantity)
		assert.Equal(t, "RESERVADO", body.ToStatus)
		return nil
	})

	metrics := new(MockPublishMetrics)
	metrics.On("RecordKafkaPublish", "slabs.stock", TypeStatusTransferred, true).Once()

	publisher := NewKafkaEventPublisherWithProducer(producer, testConfig(), zap.NewNop(), metrics)
	err := publisher.Publish(context.Background(), StatusTransferredEvent{
		BatchID:    "b-1",
		FromStatus: "DISPONIVEL",
		ToStatus:   "RESERVADO",
		Quantity:   3,
		OccurredAt: time.Now(),
	})

	require.NoError(t, err)
	metrics.AssertExpectations(t)
	require.NoError(t, publisher.Close())
}

func TestKafkaEventPublisher_RetriesThenSucceeds(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer.ExpectSendMessageAndSucceed()

	publisher := NewKafkaEventPublisherWithProducer(producer, testConfig(), zap.NewNop(), nil)
	publisher.baseDelay = time.Millisecond

	err := publisher.Publish(context.Background(), SalesLinkIssuedEvent{LinkID: "link-1"})

	require.NoError(t, err)
	require.NoError(t, publisher.Close())
}

func TestKafkaEventPublisher_GivesUp(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	for i := 0; i < 3; i++ {
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	}
	metrics := new(MockPublishMetrics)
	metrics.On("RecordKafkaPublish", "slabs.links", TypeSalesLinkDelivered, false).Once()

	publisher := NewKafkaEventPublisherWithProducer(producer, testConfig(), zap.NewNop(), metrics)
	publisher.baseDelay = time.Millisecond

	err := publisher.Publish(context.Background(), SalesLinkDeliveredEvent{LinkID: "link-1", Sent: 2})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	metrics.AssertExpectations(t)
	require.NoError(t, publisher.Close())
}

func TestKafkaEventPublisher_UnknownEvent(t *testing.T) {
	publisher := NewKafkaEventPublisherWithProducer(mocks.NewSyncProducer(t, nil), testConfig(), zap.NewNop(), nil)

	err := publisher.Publish(context.Background(), "not an event")

	assert.Error(t, err)
}

func TestKafkaEventPublisher_CancelledContext(t *testing.T) {
	publisher := NewKafkaEventPublisherWithProducer(mocks.NewSyncProducer(t, nil), testConfig(), zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.Publish(ctx, BatchSoldEvent{BatchID: "b-1"})

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGetTopicForEvent(t *testing.T) {
	publisher := &KafkaEventPublisher{config: testConfig()}

	testCases := []struct {
		name     string
		event    interface{}
		expected string
		key      string
	}{
		{"StatusTransferred", StatusTransferredEvent{BatchID: "b-1"}, "slabs.stock", "b-1"},
		{"BatchSold", BatchSoldEvent{BatchID: "b-2"}, "slabs.stock", "b-2"},
		{"SalesLinkIssued", SalesLinkIssuedEvent{LinkID: "l-1"}, "slabs.links", "l-1"},
		{"SalesLinkDelivered", SalesLinkDeliveredEvent{LinkID: "l-2"}, "slabs.links", "l-2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			topic, err := publisher.getTopicForEvent(tc.event)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, topic)
			assert.Equal(t, tc.name, EventType(tc.event))
			assert.Equal(t, tc.key, getPartitionKey(tc.event))
		})
	}
}

func TestInMemoryEventPublisher_Publish(t *testing.T) {
	publisher := NewInMemoryEventPublisher(zap.NewNop())

	require.NoError(t, publisher.Publish(context.Background(), BatchSoldEvent{BatchID: "b-1"}))

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, TypeBatchSold, EventType(events[0]))
}
