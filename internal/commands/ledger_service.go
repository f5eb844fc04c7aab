package commands

import (
	"context"
	"fmt"
	"time"

	"slabdesk/internal/backend"
	"slabdesk/internal/domain"
	"slabdesk/internal/events"

	"go.uber.org/zap"
)

// Inventory is the slice of the inventory API the ledger needs.
type Inventory interface {
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	UpdateAvailability(ctx context.Context, id string, from, to domain.Status, quantity int) (*domain.Batch, error)
	SellBatch(ctx context.Context, id string, req backend.SellRequest) (*backend.SaleResult, error)
	CreateCliente(ctx context.Context, req backend.CreateClienteRequest) (*backend.Cliente, error)
}

// LedgerMetrics records transfer outcomes.
type LedgerMetrics interface {
	RecordTransfer(from, to string, success bool)
}

// LedgerService validates bucket moves locally, lets the inventory API
// perform them and reports the server-confirmed counts. Nothing is applied
// optimistically.
type LedgerService struct {
	inventory Inventory
	publisher events.EventPublisher
	metrics   LedgerMetrics
	logger    *zap.Logger
}

func NewLedgerService(inventory Inventory, publisher events.EventPublisher, metrics LedgerMetrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		inventory: inventory,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Transfer moves cmd.Quantity slabs between buckets. Transfers into VENDIDO
// must go through Sell.
func (s *LedgerService) Transfer(ctx context.Context, cmd TransferCommand) (*domain.Batch, error) {
	if cmd.To == domain.StatusSold {
		return nil, domain.ErrSoldRequiresSaleInput
	}

	batch, err := s.inventory.GetBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}
	if err := batch.CheckTransfer(cmd.From, cmd.To, cmd.Quantity); err != nil {
		s.recordTransfer(cmd.From, cmd.To, false)
		return nil, err
	}

	confirmed, err := s.inventory.UpdateAvailability(ctx, cmd.BatchID, cmd.From, cmd.To, cmd.Quantity)
	if err != nil {
		s.recordTransfer(cmd.From, cmd.To, false)
		s.logger.Error("Transfer rejected by inventory API",
			zap.String("batch_id", cmd.BatchID),
			zap.String("from", cmd.From.String()),
			zap.String("to", cmd.To.String()),
			zap.Error(err),
		)
		return nil, err
	}
	s.recordTransfer(cmd.From, cmd.To, true)
	s.checkConfirmed(confirmed)

	s.publish(ctx, events.StatusTransferredEvent{
		BatchID:    confirmed.ID,
		BatchCode:  confirmed.Code,
		FromStatus: cmd.From.String(),
		ToStatus:   cmd.To.String(),
		Quantity:   cmd.Quantity,
		Available:  confirmed.Buckets.Available,
		Reserved:   confirmed.Buckets.Reserved,
		Sold:       confirmed.Buckets.Sold,
		Inactive:   confirmed.Buckets.Inactive,
		UserID:     cmd.UserID,
		OccurredAt: time.Now().UTC(),
	})

	s.logger.Info("Slabs transferred",
		zap.String("batch_id", confirmed.ID),
		zap.String("from", cmd.From.String()),
		zap.String("to", cmd.To.String()),
		zap.Int("quantity", cmd.Quantity),
	)
	return confirmed, nil
}

// Sell records a sale of cmd.Quantity slabs taken from cmd.From. A sale
// price without currency is taken in the batch currency. A new buyer is
// created in the directory first; the inventory API has no call that does
// both, so a rejected sale leaves that buyer in the directory and its id is
// logged.
func (s *LedgerService) Sell(ctx context.Context, cmd SellCommand) (*SaleOutcome, error) {
	batch, err := s.inventory.GetBatch(ctx, cmd.BatchID)
	if err != nil {
		return nil, err
	}
	if cmd.Sale.SalePrice.Currency == "" {
		cmd.Sale.SalePrice.Currency = batch.BasePrice.Currency
	}
	if err := cmd.Sale.Validate(batch, cmd.From, cmd.Quantity); err != nil {
		s.recordTransfer(cmd.From, domain.StatusSold, false)
		return nil, err
	}

	clienteID := cmd.Sale.Buyer.ClienteID
	createdBuyer := false
	if nc := cmd.Sale.Buyer.NewCliente; nc != nil {
		created, err := s.inventory.CreateCliente(ctx, backend.CreateClienteRequest{
			Name:  nc.Name,
			Email: nc.Email,
			Phone: nc.Phone,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create buyer: %w", err)
		}
		clienteID = created.ID
		createdBuyer = true
	}

	req := backend.SellRequest{
		QuantitySlabsSold: cmd.Quantity,
		FromStatus:        cmd.From.String(),
		SalePrice:         cmd.Sale.SalePrice.Cents(),
		Currency:          string(cmd.Sale.SalePrice.Currency),
		SellerID:          cmd.Sale.Seller.UserID,
		SellerName:        cmd.Sale.Seller.Name,
		ClienteID:         clienteID,
		Notes:             cmd.Sale.Notes,
	}
	result, err := s.inventory.SellBatch(ctx, cmd.BatchID, req)
	if err != nil {
		s.recordTransfer(cmd.From, domain.StatusSold, false)
		s.logger.Error("Sale rejected by inventory API", zap.String("batch_id", cmd.BatchID), zap.Error(err))
		if createdBuyer {
			s.logger.Warn("Buyer created for a rejected sale remains in the directory",
				zap.String("batch_id", cmd.BatchID),
				zap.String("cliente_id", clienteID),
				zap.String("user_id", cmd.UserID))
		}
		return nil, err
	}
	s.recordTransfer(cmd.From, domain.StatusSold, true)

	confirmed := result.Batch.ToDomain()
	s.checkConfirmed(&confirmed)

	s.publish(ctx, events.BatchSoldEvent{
		BatchID:    confirmed.ID,
		BatchCode:  confirmed.Code,
		SaleID:     result.SaleID,
		FromStatus: cmd.From.String(),
		Quantity:   cmd.Quantity,
		SalePrice:  req.SalePrice,
		Currency:   req.Currency,
		SellerID:   req.SellerID,
		SellerName: req.SellerName,
		ClienteID:  clienteID,
		Available:  confirmed.Buckets.Available,
		Reserved:   confirmed.Buckets.Reserved,
		Sold:       confirmed.Buckets.Sold,
		Inactive:   confirmed.Buckets.Inactive,
		UserID:     cmd.UserID,
		OccurredAt: time.Now().UTC(),
	})

	s.logger.Info("Sale recorded",
		zap.String("batch_id", confirmed.ID),
		zap.String("sale_id", result.SaleID),
		zap.Int("quantity", cmd.Quantity),
	)
	return &SaleOutcome{SaleID: result.SaleID, ClienteID: clienteID, Batch: &confirmed}, nil
}

// checkConfirmed logs server counts that break the ledger invariant. The
// server stays authoritative.
func (s *LedgerService) checkConfirmed(batch *domain.Batch) {
	if err := batch.CheckInvariant(); err != nil {
		s.logger.Warn("Inventory API returned inconsistent buckets",
			zap.String("batch_id", batch.ID),
			zap.Int("total_slabs", batch.TotalSlabs),
			zap.Int("bucket_sum", batch.Buckets.Total()),
		)
	}
}

func (s *LedgerService) recordTransfer(from, to domain.Status, success bool) {
	if s.metrics != nil {
		s.metrics.RecordTransfer(from.String(), to.String(), success)
	}
}

// publish is best effort; the inventory API already committed the change.
func (s *LedgerService) publish(ctx context.Context, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("event_type", events.EventType(event)),
			zap.Error(err),
		)
	}
}
