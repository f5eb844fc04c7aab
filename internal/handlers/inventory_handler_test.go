package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"slabdesk/internal/backend"
	"slabdesk/internal/commands"
	"slabdesk/internal/domain"
	"slabdesk/internal/listing"
	"slabdesk/internal/pricing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupInventoryRouter(inventory *MockInventory, ledger *MockLedger) *gin.Engine {
	handler := NewInventoryHandler(zap.NewNop(), inventory, ledger)
	router := newTestRouter(testUser)

	v1 := router.Group("/api/v1")
	{
		batches := v1.Group("/batches")
		{
			batches.GET("", handler.ListBatches)
			batches.GET("/:id", handler.GetBatch)
			batches.POST("/:id/transfer", handler.TransferBatch)
			batches.POST("/:id/sell", handler.SellBatch)
		}
		v1.GET("/products", handler.ListProducts)
		v1.GET("/broker/shared-inventory", handler.ListSharedInventory)
	}
	return router
}

func TestTransferBatch_Success(t *testing.T) {
	inventory := new(MockInventory)
	ledger := new(MockLedger)
	router := setupInventoryRouter(inventory, ledger)

	confirmed := testBatch("b-1", 2, pricing.BRL)
	ledger.On("Transfer", mock.Anything, commands.TransferCommand{
		BatchID:  "b-1",
		From:     domain.StatusAvailable,
		To:       domain.StatusReserved,
		Quantity: 3,
		UserID:   testUser,
	}).Return(confirmed, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/batches/b-1/transfer", TransferRequest{
		FromStatus: "disponivel",
		ToStatus:   "RESERVADO",
		Quantity:   3,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var batch domain.Batch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	assert.Equal(t, 2, batch.Buckets.Available)
	assert.Equal(t, 8, batch.Buckets.Reserved)
	ledger.AssertExpectations(t)
}

func TestTransferBatch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       TransferRequest
		ledgerErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "zero quantity fails binding",
			body:       TransferRequest{FromStatus: "DISPONIVEL", ToStatus: "RESERVADO", Quantity: 0},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ValidationError",
		},
		{
			name:       "unknown status",
			body:       TransferRequest{FromStatus: "QUEBRADO", ToStatus: "RESERVADO", Quantity: 1},
			wantStatus: http.StatusBadRequest,
			wantCode:   "InvalidTransfer",
		},
		{
			name:       "insufficient quantity",
			body:       TransferRequest{FromStatus: "DISPONIVEL", ToStatus: "RESERVADO", Quantity: 9},
			ledgerErr:  &domain.InsufficientQuantityError{Status: domain.StatusAvailable, Available: 2, Requested: 9},
			wantStatus: http.StatusBadRequest,
			wantCode:   "InsufficientQuantity",
		},
		{
			name:       "sold requires sale",
			body:       TransferRequest{FromStatus: "DISPONIVEL", ToStatus: "VENDIDO", Quantity: 1},
			ledgerErr:  domain.ErrSoldRequiresSaleInput,
			wantStatus: http.StatusBadRequest,
			wantCode:   "InvalidTransfer",
		},
		{
			name:       "batch not found",
			body:       TransferRequest{FromStatus: "DISPONIVEL", ToStatus: "RESERVADO", Quantity: 1},
			ledgerErr:  &backendNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "BatchNotFound",
		},
		{
			name:       "inventory API down",
			body:       TransferRequest{FromStatus: "DISPONIVEL", ToStatus: "RESERVADO", Quantity: 1},
			ledgerErr:  backend.ErrUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "ServiceUnavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(MockLedger)
			router := setupInventoryRouter(new(MockInventory), ledger)
			if tt.ledgerErr != nil {
				ledger.On("Transfer", mock.Anything, mock.Anything).Return(nil, tt.ledgerErr)
			}

			w := doJSON(router, http.MethodPost, "/api/v1/batches/b-1/transfer", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(w).Error)
			if tt.ledgerErr == nil {
				ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSellBatch_Success(t *testing.T) {
	ledger := new(MockLedger)
	router := setupInventoryRouter(new(MockInventory), ledger)

	ledger.On("Sell", mock.Anything, mock.MatchedBy(func(cmd commands.SellCommand) bool {
		return cmd.BatchID == "b-1" &&
			cmd.From == domain.StatusReserved &&
			cmd.Quantity == 2 &&
			cmd.Sale.Seller.Name == "João" &&
			cmd.Sale.SalePrice.Amount.String() == "1300" &&
			cmd.Sale.SalePrice.Currency == "" &&
			cmd.Sale.Buyer.NewCliente != nil && cmd.Sale.Buyer.NewCliente.Name == "Marmoraria Sul"
	})).Return(&commands.SaleOutcome{SaleID: "sale-1", ClienteID: "c-9", Batch: testBatch("b-1", 5, pricing.BRL)}, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/batches/b-1/sell", SellRequest{
		FromStatus: "RESERVADO",
		Quantity:   2,
		SalePrice:  "1300",
		SellerName: "João",
		NewCliente: &domain.NewCliente{Name: "Marmoraria Sul"},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var outcome commands.SaleOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, "sale-1", outcome.SaleID)
	assert.Equal(t, "c-9", outcome.ClienteID)
	ledger.AssertExpectations(t)
}

func TestSellBatch_Rejections(t *testing.T) {
	ledger := new(MockLedger)
	router := setupInventoryRouter(new(MockInventory), ledger)

	w := doJSON(router, http.MethodPost, "/api/v1/batches/b-1/sell", SellRequest{
		FromStatus: "RESERVADO", Quantity: 1, SalePrice: "abc", SellerName: "João",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decodeError(w).Error)

	ledger.On("Sell", mock.Anything, mock.Anything).
		Return(nil, &domain.PriceBelowFloorError{Floor: "R$ 600.00", Price: "R$ 599.99"}).Once()
	w = doJSON(router, http.MethodPost, "/api/v1/batches/b-1/sell", SellRequest{
		FromStatus: "RESERVADO", Quantity: 1, SalePrice: "599.99", SellerName: "João",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PriceBelowFloor", decodeError(w).Error)

	ledger.On("Sell", mock.Anything, mock.Anything).Return(nil, domain.ErrSellerRequired).Once()
	w = doJSON(router, http.MethodPost, "/api/v1/batches/b-1/sell", SellRequest{
		FromStatus: "RESERVADO", Quantity: 1, SalePrice: "600",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decodeError(w).Error)
}

func TestListBatches(t *testing.T) {
	inventory := new(MockInventory)
	router := setupInventoryRouter(inventory, new(MockLedger))

	inventory.On("ListBatches", mock.Anything, mock.MatchedBy(func(p listing.Params) bool {
		return p.Status == "DISPONIVEL" && p.Page == 2 && p.PageSize == 5
	})).Return(&backend.BatchList{
		Batches: []backend.Batch{{ID: "b-1", BatchCode: "LOT-1", QuantitySlabs: 4, AvailableSlabs: 4}},
		Total:   6,
	}, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/batches?status=disponivel&page=2&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page listing.Page[domain.Batch]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "b-1", page.Items[0].ID)

	w = doJSON(router, http.MethodGet, "/api/v1/batches?status=QUEBRADO", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSharedInventory_PagesLocally(t *testing.T) {
	inventory := new(MockInventory)
	router := setupInventoryRouter(inventory, new(MockLedger))

	shared := make([]backend.SharedBatch, 12)
	for i := range shared {
		shared[i] = backend.SharedBatch{ID: string(rune('a' + i))}
	}
	inventory.On("ListSharedInventory", mock.Anything, mock.Anything).Return(shared, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/broker/shared-inventory?page=2&page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page listing.Page[backend.SharedBatch]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 12, page.Total)
	assert.Len(t, page.Items, 2)
}
