package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"slabdesk/internal/config"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PublishMetrics records publish outcomes.
type PublishMetrics interface {
	RecordKafkaPublish(topic, eventType string, success bool)
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    sarama.SyncProducer
	logger      *zap.Logger
	config      *config.Config
	metrics     PublishMetrics
	baseDelay   time.Duration
	sendTimeout time.Duration
}

// NewKafkaEventPublisher creates an idempotent sync producer.
func NewKafkaEventPublisher(cfg *config.Config, logger *zap.Logger, metrics PublishMetrics) (*KafkaEventPublisher, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.KafkaClientID
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = cfg.KafkaRetries
	saramaCfg.Producer.Idempotent = true
	saramaCfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaEventPublisherWithProducer(producer, cfg, logger, metrics), nil
}

// NewKafkaEventPublisherWithProducer wraps an existing producer.
func NewKafkaEventPublisherWithProducer(producer sarama.SyncProducer, cfg *config.Config, logger *zap.Logger, metrics PublishMetrics) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer:    producer,
		logger:      logger,
		config:      cfg,
		metrics:     metrics,
		baseDelay:   100 * time.Millisecond,
		sendTimeout: 5 * time.Second,
	}
}

// Publish publishes an event to Kafka with retries and exponential backoff
func (p *KafkaEventPublisher) Publish(ctx context.Context, event interface{}) error {
	topic, err := p.getTopicForEvent(event)
	if err != nil {
		return fmt.Errorf("failed to determine topic: %w", err)
	}
	eventType := EventType(event)

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(eventJSON),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(eventType)},
			{Key: []byte("event-id"), Value: []byte(uuid.New().String())},
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}
	if key := getPartitionKey(event); key != "" {
		message.Key = sarama.StringEncoder(key)
	}

	maxRetries := p.config.KafkaRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			p.record(topic, eventType, false)
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		err := p.send(ctx, message)
		if err == nil {
			p.record(topic, eventType, true)
			return nil
		}
		p.logger.Warn("Failed to publish event to Kafka, retrying",
			zap.String("topic", topic),
			zap.String("event-type", eventType),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		)

		if attempt < maxRetries-1 {
			delay := p.baseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				p.record(topic, eventType, false)
				return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	p.record(topic, eventType, false)
	return fmt.Errorf("failed to publish %s to Kafka after %d attempts", eventType, maxRetries)
}

func (p *KafkaEventPublisher) send(ctx context.Context, message *sarama.ProducerMessage) error {
	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		partition, offset, err := p.producer.SendMessage(message)
		if err == nil {
			p.logger.Info("Event published to Kafka",
				zap.String("topic", message.Topic),
				zap.Int32("partition", partition),
				zap.Int64("offset", offset),
			)
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("timeout publishing event to Kafka: %w", sendCtx.Err())
	}
}

func (p *KafkaEventPublisher) record(topic, eventType string, success bool) {
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, eventType, success)
	}
}

// Close closes the Kafka producer
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func (p *KafkaEventPublisher) getTopicForEvent(event interface{}) (string, error) {
	switch event.(type) {
	case StatusTransferredEvent, BatchSoldEvent:
		return p.config.KafkaTopicStock, nil
	case SalesLinkIssuedEvent, SalesLinkDeliveredEvent:
		return p.config.KafkaTopicLinks, nil
	default:
		return "", fmt.Errorf("unknown event type: %T", event)
	}
}

// getPartitionKey keeps events of one batch or link ordered.
func getPartitionKey(event interface{}) string {
	switch e := event.(type) {
	case StatusTransferredEvent:
		return e.BatchID
	case BatchSoldEvent:
		return e.BatchID
	case SalesLinkIssuedEvent:
		return e.LinkID
	case SalesLinkDeliveredEvent:
		return e.LinkID
	}
	return ""
}
