package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event type names, sent in the event-type header.
const (
	TypeStatusTransferred  = "StatusTransferred"
	TypeBatchSold          = "BatchSold"
	TypeSalesLinkIssued    = "SalesLinkIssued"
	TypeSalesLinkDelivered = "SalesLinkDelivered"
)

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// StatusTransferredEvent is emitted after the inventory API confirmed a
// bucket transfer. Bucket counts are the confirmed values.
type StatusTransferredEvent struct {
	BatchID    string    `json:"batchId"`
	BatchCode  string    `json:"batchCode"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Quantity   int       `json:"quantity"`
	Available  int       `json:"available"`
	Reserved   int       `json:"reserved"`
	Sold       int       `json:"sold"`
	Inactive   int       `json:"inactive"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// BatchSoldEvent is emitted after a confirmed sale. SalePrice is in cents.
type BatchSoldEvent struct {
	BatchID    string    `json:"batchId"`
	BatchCode  string    `json:"batchCode"`
	SaleID     string    `json:"saleId"`
	FromStatus string    `json:"fromStatus"`
	Quantity   int       `json:"quantity"`
	SalePrice  int64     `json:"salePrice"`
	Currency   string    `json:"currency"`
	SellerID   string    `json:"sellerId,omitempty"`
	SellerName string    `json:"sellerName,omitempty"`
	ClienteID  string    `json:"clienteId,omitempty"`
	Available  int       `json:"available"`
	Reserved   int       `json:"reserved"`
	Sold       int       `json:"sold"`
	Inactive   int       `json:"inactive"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// SalesLinkIssuedEvent is emitted when a draft produced a link. TotalValue
// is in cents of Currency.
type SalesLinkIssuedEvent struct {
	LinkID      string    `json:"linkId"`
	LinkType    string    `json:"linkType"`
	Slug        string    `json:"slug"`
	URL         string    `json:"url"`
	DraftID     string    `json:"draftId"`
	BatchIDs    []string  `json:"batchIds"`
	TotalPieces int       `json:"totalPieces"`
	TotalValue  int64     `json:"totalValue"`
	Currency    string    `json:"currency"`
	UserID      string    `json:"userId"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// SalesLinkDeliveredEvent summarises one bulk delivery of a link.
type SalesLinkDeliveredEvent struct {
	LinkID     string    `json:"linkId"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// InMemoryEventPublisher keeps events in memory. Used when Kafka is disabled
// and in tests.
type InMemoryEventPublisher struct {
	mu     sync.Mutex
	logger *zap.Logger
	events []interface{}
}

func NewInMemoryEventPublisher(logger *zap.Logger) *InMemoryEventPublisher {
	return &InMemoryEventPublisher{
		logger: logger,
		events: make([]interface{}, 0),
	}
}

func (p *InMemoryEventPublisher) Publish(ctx context.Context, event interface{}) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	p.logger.Debug("Event published (in-memory)", zap.String("event-type", EventType(event)))
	return nil
}

// Events returns a copy of everything published so far.
func (p *InMemoryEventPublisher) Events() []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]interface{}, len(p.events))
	copy(out, p.events)
	return out
}

// EventType returns the header name of event, "Unknown" for foreign types.
func EventType(event interface{}) string {
	switch event.(type) {
	case StatusTransferredEvent:
		return TypeStatusTransferred
	case BatchSoldEvent:
		return TypeBatchSold
	case SalesLinkIssuedEvent:
		return TypeSalesLinkIssued
	case SalesLinkDeliveredEvent:
		return TypeSalesLinkDelivered
	default:
		return "Unknown"
	}
}
