package commands

import (
	"context"
	"errors"
	"testing"

	"slabdesk/internal/backend"
	"slabdesk/internal/domain"
	"slabdesk/internal/events"
	"slabdesk/internal/pricing"
	apierrors "slabdesk/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockInventory is a mock implementation of Inventory
type MockInventory struct {
	mock.Mock
}

func (m *MockInventory) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}

func (m *MockInventory) UpdateAvailability(ctx context.Context, id string, from, to domain.Status, quantity int) (*domain.Batch, error) {
	args := m.Called(ctx, id, from, to, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}

func (m *MockInventory) SellBatch(ctx context.Context, id string, req backend.SellRequest) (*backend.SaleResult, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.SaleResult), args.Error(1)
}

func (m *MockInventory) CreateCliente(ctx context.Context, req backend.CreateClienteRequest) (*backend.Cliente, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.Cliente), args.Error(1)
}

// MockLedgerMetrics is a mock implementation of LedgerMetrics
type MockLedgerMetrics struct {
	mock.Mock
}

func (m *MockLedgerMetrics) RecordTransfer(from, to string, success bool) {
	m.Called(from, to, success)
}

func testBatch() *domain.Batch {
	b := domain.NewBatch("b-1", "B1",
		decimal.NewFromInt(180), decimal.NewFromInt(120), 20,
		pricing.NewMoney(decimal.NewFromInt(100), pricing.BRL), pricing.M2)
	b.Buckets = domain.Buckets{Available: 10, Reserved: 5, Sold: 3, Inactive: 2}
	return b
}

func wireBatch(b domain.Buckets) backend.Batch {
	return backend.Batch{
		ID: "b-1", BatchCode: "B1",
		Height: decimal.NewFromInt(180), Width: decimal.NewFromInt(120),
		QuantitySlabs: 20, IndustryPrice: 10000, Currency: "BRL", PriceUnit: "M2",
		AvailableSlabs: b.Available, ReservedSlabs: b.Reserved, SoldSlabs: b.Sold, InactiveSlabs: b.Inactive,
	}
}

func newService(inv *MockInventory, metrics *MockLedgerMetrics) (*LedgerService, *events.InMemoryEventPublisher) {
	publisher := events.NewInMemoryEventPublisher(zap.NewNop())
	if metrics == nil {
		return NewLedgerService(inv, publisher, nil, zap.NewNop()), publisher
	}
	return NewLedgerService(inv, publisher, metrics, zap.NewNop()), publisher
}

func TestTransfer_AppliesServerCounts(t *testing.T) {
	inv := new(MockInventory)
	metrics := new(MockLedgerMetrics)
	svc, publisher := newService(inv, metrics)
	ctx := context.Background()

	confirmed := testBatch()
	confirmed.Buckets = domain.Buckets{Available: 7, Reserved: 8, Sold: 3, Inactive: 2}

	inv.On("GetBatch", ctx, "b-1").Return(testBatch(), nil)
	inv.On("UpdateAvailability", ctx, "b-1", domain.StatusAvailable, domain.StatusReserved, 3).Return(confirmed, nil)
	metrics.On("RecordTransfer", "DISPONIVEL", "RESERVADO", true).Return()

	got, err := svc.Transfer(ctx, TransferCommand{
		BatchID: "b-1", From: domain.StatusAvailable, To: domain.StatusReserved, Quantity: 3, UserID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Buckets.Available)
	assert.Equal(t, 8, got.Buckets.Reserved)
	inv.AssertExpectations(t)
	metrics.AssertExpectations(t)

	published := publisher.Events()
	require.Len(t, published, 1)
	event := published[0].(events.StatusTransferredEvent)
	assert.Equal(t, 3, event.Quantity)
	assert.Equal(t, 8, event.Reserved)
	assert.Equal(t, "user-1", event.UserID)
}

func TestTransfer_LocalChecksSkipTheServer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cmd     TransferCommand
		wantErr error
	}{
		{"insufficient", TransferCommand{BatchID: "b-1", From: domain.StatusReserved, To: domain.StatusAvailable, Quantity: 6}, domain.ErrInsufficientQuantity},
		{"same status", TransferCommand{BatchID: "b-1", From: domain.StatusReserved, To: domain.StatusReserved, Quantity: 1}, domain.ErrSameStatus},
		{"zero quantity", TransferCommand{BatchID: "b-1", From: domain.StatusAvailable, To: domain.StatusInactive, Quantity: 0}, domain.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := new(MockInventory)
			metrics := new(MockLedgerMetrics)
			svc, publisher := newService(inv, metrics)

			inv.On("GetBatch", ctx, "b-1").Return(testBatch(), nil)
			metrics.On("RecordTransfer", mock.Anything, mock.Anything, false).Return()

			_, err := svc.Transfer(ctx, tt.cmd)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			inv.AssertNotCalled(t, "UpdateAvailability", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Empty(t, publisher.Events())
		})
	}
}

func TestTransfer_IntoSoldRequiresSale(t *testing.T) {
	inv := new(MockInventory)
	svc, _ := newService(inv, nil)

	_, err := svc.Transfer(context.Background(), TransferCommand{
		BatchID: "b-1", From: domain.StatusAvailable, To: domain.StatusSold, Quantity: 1,
	})
	assert.Equal(t, domain.ErrSoldRequiresSaleInput, err)
	inv.AssertNotCalled(t, "GetBatch", mock.Anything, mock.Anything)
}

func TestTransfer_ServerRejectionIsReturned(t *testing.T) {
	inv := new(MockInventory)
	metrics := new(MockLedgerMetrics)
	svc, publisher := newService(inv, metrics)
	ctx := context.Background()
	conflict := &apierrors.APIError{Status: 409, Code: "CONFLICT", Message: "stale batch"}

	inv.On("GetBatch", ctx, "b-1").Return(testBatch(), nil)
	inv.On("UpdateAvailability", ctx, "b-1", domain.StatusAvailable, domain.StatusInactive, 2).Return(nil, conflict)
	metrics.On("RecordTransfer", "DISPONIVEL", "INATIVO", false).Return()

	_, err := svc.Transfer(ctx, TransferCommand{BatchID: "b-1", From: domain.StatusAvailable, To: domain.StatusInactive, Quantity: 2})
	assert.Equal(t, conflict, err)
	assert.Empty(t, publisher.Events())
	metrics.AssertExpectations(t)
}

func TestSell_WithNewBuyer(t *testing.T) {
	inv := new(MockInventory)
	metrics := new(MockLedgerMetrics)
	svc, publisher := newService(inv, metrics)
	ctx := context.Background()

	inv.On("GetBatch", ctx, "b-1").Return(testBatch(), nil)
	inv.On("CreateCliente", ctx, backend.CreateClienteRequest{Name: "Marmoraria X", Email: "x@example.com"}).
		Return(&backend.Cliente{ID: "c-9", Name: "Marmoraria X"}, nil)
	inv.On("SellBatch", ctx, "b-1", mock.MatchedBy(func(req backend.SellRequest) bool {
		return req.QuantitySlabsSold == 2 && req.SalePrice == 50000 && req.ClienteID == "c-9" &&
			req.SellerName == "João" && req.FromStatus == "RESERVADO" && req.Currency == "BRL"
	})).Return(&backend.SaleResult{
		SaleID: "sale-1",
		Batch:  wireBatch(domain.Buckets{Available: 10, Reserved: 3, Sold: 5, Inactive: 2}),
	}, nil)
	metrics.On("RecordTransfer", "RESERVADO", "VENDIDO", true).Return()

	outcome, err := svc.Sell(ctx, SellCommand{
		BatchID:  "b-1",
		From:     domain.StatusReserved,
		Quantity: 2,
		Sale: domain.SaleCapture{
			Seller:    domain.Seller{Name: "João"},
			Buyer:     domain.Buyer{NewCliente: &domain.NewCliente{Name: "Marmoraria X", Email: "x@example.com"}},
			SalePrice: pricing.NewMoney(decimal.NewFromInt(500), pricing.BRL),
		},
		UserID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "sale-1", outcome.SaleID)
	assert.Equal(t, "c-9", outcome.ClienteID)
	assert.Equal(t, 5, outcome.Batch.Buckets.Sold)
	inv.AssertExpectations(t)
	metrics.AssertExpectations(t)

	event := publisher.Events()[0].(events.BatchSoldEvent)
	assert.Equal(t, int64(50000), event.SalePrice)
	assert.Equal(t, "c-9", event.ClienteID)
	assert.Equal(t, 3, event.Reserved)
}

func TestSell_BelowFloorNeverReachesServer(t *testing.T) {
	inv := new(MockInventory)
	metrics := new(MockLedgerMetrics)
	svc, _ := newService(inv, metrics)
	ctx := context.Background()

	inv.On("GetBatch", ctx, "b-1").Return(testBatch(), nil)
	metrics.On("RecordTransfer", "DISPONIVEL", "VENDIDO", false).Return()

	// floor for 2 slabs is 432.00
	_, err := svc.Sell(ctx, SellCommand{
		BatchID:  "b-1",
		From:     domain.StatusAvailable,
		Quantity: 2,
		Sale: domain.SaleCapture{
			Seller:    domain.Seller{UserID: "user-1"},
			SalePrice: pricing.NewMoney(decimal.RequireFromString("431.99"), pricing.BRL),
		},
	})
	assert.True(t, errors.Is(err, domain.ErrPriceBelowFloor))
	inv.AssertNotCalled(t, "SellBatch", mock.Anything, mock.Anything, mock.Anything)
	inv.AssertNotCalled(t, "CreateCliente", mock.Anything, mock.Anything)
}

func TestSell_BatchNotFound(t *testing.T) {
	inv := new(MockInventory)
	svc, _ := newService(inv, nil)
	ctx := context.Background()
	notFound := &apierrors.APIError{Status: 404, Code: "NOT_FOUND", Message: "batch not found"}

	inv.On("GetBatch", ctx, "b-404").Return(nil, notFound)

	_, err := svc.Sell(ctx, SellCommand{BatchID: "b-404", From: domain.StatusAvailable, Quantity: 1})
	assert.Equal(t, notFound, err)
}

func TestSell_RejectedSaleLogsCreatedBuyer(t *testing.T) {
	inv := new(MockInventory)
	metrics := new(MockLedgerMetrics)
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewLedgerService(inv, events.NewInMemoryEventPublisher(zap.NewNop()), metrics, zap.New(core))
	ctx := context.Background()
	rejected := &apierrors.APIError{Status: 409, Code: "CONFLICT", Message: "not enough reserved slabs"}

	inv.On("GetBatch", ctx, "b-1").Return(testBatch(), nil)
	inv.On("CreateCliente", ctx, mock.Anything).Return(&backend.Cliente{ID: "c-9"}, nil)
	inv.On("SellBatch", ctx, "b-1", mock.Anything).Return(nil, rejected)
	metrics.On("RecordTransfer", "RESERVADO", "VENDIDO", false).Return()

	_, err := svc.Sell(ctx, SellCommand{
		BatchID:  "b-1",
		From:     domain.StatusReserved,
		Quantity: 2,
		Sale: domain.SaleCapture{
			Seller:    domain.Seller{Name: "João"},
			Buyer:     domain.Buyer{NewCliente: &domain.NewCliente{Name: "Marmoraria X", Email: "x@example.com"}},
			SalePrice: pricing.NewMoney(decimal.NewFromInt(500), pricing.BRL),
		},
		UserID: "user-1",
	})
	assert.Equal(t, rejected, err)
	inv.AssertExpectations(t)

	orphans := logs.FilterField(zap.String("cliente_id", "c-9")).All()
	require.Len(t, orphans, 1)
	assert.Equal(t, zapcore.WarnLevel, orphans[0].Level)
}

func TestSell_RejectedSaleWithExistingBuyerLogsNoOrphan(t *testing.T) {
	inv := new(MockInventory)
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewLedgerService(inv, events.NewInMemoryEventPublisher(zap.NewNop()), nil, zap.New(core))
	ctx := context.Background()

	inv.On("GetBatch", ctx, "b-1").Return(testBatch(), nil)
	inv.On("SellBatch", ctx, "b-1", mock.Anything).Return(nil, errors.New("boom"))

	_, err := svc.Sell(ctx, SellCommand{
		BatchID:  "b-1",
		From:     domain.StatusReserved,
		Quantity: 2,
		Sale: domain.SaleCapture{
			Seller:    domain.Seller{Name: "João"},
			Buyer:     domain.Buyer{ClienteID: "c-1"},
			SalePrice: pricing.NewMoney(decimal.NewFromInt(500), pricing.BRL),
		},
	})
	assert.Error(t, err)
	inv.AssertNotCalled(t, "CreateCliente", mock.Anything, mock.Anything)
	assert.Zero(t, logs.FilterMessage("Buyer created for a rejected sale remains in the directory").Len())
}
