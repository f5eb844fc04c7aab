package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slabdesk/internal/events"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownEventType marks messages the log does not project. They are
// not worth retrying.
var ErrUnknownEventType = errors.New("unknown event type")

// Store is the write side used by the processor.
type Store interface {
	RecordBatchChange(ctx context.Context, entry Entry, snap BatchSnapshot) error
	RecordLinkIssued(ctx context.Context, entry Entry, stats LinkStats) error
	RecordLinkDelivery(ctx context.Context, entry Entry, linkID string, sent, failed, skipped int) error
}

// Processor projects ledger and link events into the activity log.
type Processor struct {
	store  Store
	logger *zap.Logger
}

func NewProcessor(store Store, logger *zap.Logger) *Processor {
	return &Processor{store: store, logger: logger}
}

// ProcessEvent applies one event. eventID deduplicates redeliveries; an
// empty id gets a fresh one.
func (p *Processor) ProcessEvent(ctx context.Context, eventType, eventID string, data []byte) error {
	if eventID == "" {
		eventID = uuid.New().String()
	}
	switch eventType {
	case events.TypeStatusTransferred:
		return p.processStatusTransferred(ctx, eventID, data)
	case events.TypeBatchSold:
		return p.processBatchSold(ctx, eventID, data)
	case events.TypeSalesLinkIssued:
		return p.processLinkIssued(ctx, eventID, data)
	case events.TypeSalesLinkDelivered:
		return p.processLinkDelivered(ctx, eventID, data)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
}

func occurredAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func (p *Processor) processStatusTransferred(ctx context.Context, eventID string, data []byte) error {
	var event events.StatusTransferredEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.BatchID == "" {
		return fmt.Errorf("%s without batch id", events.TypeStatusTransferred)
	}
	at := occurredAt(event.OccurredAt)

	entry := Entry{
		EventID:     eventID,
		EventType:   events.TypeStatusTransferred,
		SubjectType: "batch",
		SubjectID:   event.BatchID,
		UserID:      event.UserID,
		Summary:     fmt.Sprintf("%d slabs of %s moved %s -> %s", event.Quantity, event.BatchCode, event.FromStatus, event.ToStatus),
		Payload:     string(data),
		OccurredAt:  at,
	}
	snap := BatchSnapshot{
		BatchID:   event.BatchID,
		BatchCode: event.BatchCode,
		Available: event.Available,
		Reserved:  event.Reserved,
		Sold:      event.Sold,
		Inactive:  event.Inactive,
		UpdatedAt: at,
	}
	if err := p.store.RecordBatchChange(ctx, entry, snap); err != nil {
		return err
	}

	p.logger.Info("Status transfer recorded",
		zap.String("batch_id", event.BatchID),
		zap.String("from", event.FromStatus),
		zap.String("to", event.ToStatus),
		zap.Int("quantity", event.Quantity),
	)
	return nil
}

func (p *Processor) processBatchSold(ctx context.Context, eventID string, data []byte) error {
	var event events.BatchSoldEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.BatchID == "" {
		return fmt.Errorf("%s without batch id", events.TypeBatchSold)
	}
	at := occurredAt(event.OccurredAt)

	seller := event.SellerName
	if seller == "" {
		seller = event.SellerID
	}
	entry := Entry{
		EventID:     eventID,
		EventType:   events.TypeBatchSold,
		SubjectType: "batch",
		SubjectID:   event.BatchID,
		UserID:      event.UserID,
		Summary:     fmt.Sprintf("%d slabs of %s sold by %s for %d %s cents", event.Quantity, event.BatchCode, seller, event.SalePrice, event.Currency),
		Payload:     string(data),
		OccurredAt:  at,
	}
	snap := BatchSnapshot{
		BatchID:   event.BatchID,
		BatchCode: event.BatchCode,
		Available: event.Available,
		Reserved:  event.Reserved,
		Sold:      event.Sold,
		Inactive:  event.Inactive,
		UpdatedAt: at,
	}
	if err := p.store.RecordBatchChange(ctx, entry, snap); err != nil {
		return err
	}

	p.logger.Info("Sale recorded",
		zap.String("batch_id", event.BatchID),
		zap.String("sale_id", event.SaleID),
		zap.Int("quantity", event.Quantity),
	)
	return nil
}

func (p *Processor) processLinkIssued(ctx context.Context, eventID string, data []byte) error {
	var event events.SalesLinkIssuedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.LinkID == "" {
		return fmt.Errorf("%s without link id", events.TypeSalesLinkIssued)
	}
	at := occurredAt(event.OccurredAt)

	entry := Entry{
		EventID:     eventID,
		EventType:   events.TypeSalesLinkIssued,
		SubjectType: "link",
		SubjectID:   event.LinkID,
		UserID:      event.UserID,
		Summary:     fmt.Sprintf("%s link %s issued with %d batches", event.LinkType, event.Slug, len(event.BatchIDs)),
		Payload:     string(data),
		OccurredAt:  at,
	}
	stats := LinkStats{
		LinkID:      event.LinkID,
		LinkType:    event.LinkType,
		Slug:        event.Slug,
		URL:         event.URL,
		TotalPieces: event.TotalPieces,
		IssuedBy:    event.UserID,
		IssuedAt:    at,
	}
	if err := p.store.RecordLinkIssued(ctx, entry, stats); err != nil {
		return err
	}

	p.logger.Info("Sales link recorded", zap.String("link_id", event.LinkID), zap.String("slug", event.Slug))
	return nil
}

func (p *Processor) processLinkDelivered(ctx context.Context, eventID string, data []byte) error {
	var event events.SalesLinkDeliveredEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.LinkID == "" {
		return fmt.Errorf("%s without link id", events.TypeSalesLinkDelivered)
	}

	entry := Entry{
		EventID:     eventID,
		EventType:   events.TypeSalesLinkDelivered,
		SubjectType: "link",
		SubjectID:   event.LinkID,
		UserID:      event.UserID,
		Summary:     fmt.Sprintf("sent %d, failed %d, skipped %d", event.Sent, event.Failed, event.Skipped),
		Payload:     string(data),
		OccurredAt:  occurredAt(event.OccurredAt),
	}
	if err := p.store.RecordLinkDelivery(ctx, entry, event.LinkID, event.Sent, event.Failed, event.Skipped); err != nil {
		return err
	}

	p.logger.Info("Link delivery recorded",
		zap.String("link_id", event.LinkID),
		zap.Int("sent", event.Sent),
		zap.Int("failed", event.Failed),
		zap.Int("skipped", event.Skipped),
	)
	return nil
}
