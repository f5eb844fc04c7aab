package handlers

import (
	"context"
	"net/http"

	"slabdesk/internal/backend"
	"slabdesk/internal/commands"
	"slabdesk/internal/domain"
	"slabdesk/internal/listing"
	"slabdesk/internal/pricing"
	apierrors "slabdesk/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryReader is the read side of the inventory API.
type InventoryReader interface {
	ListBatches(ctx context.Context, params listing.Params) (*backend.BatchList, error)
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	ListProducts(ctx context.Context, params listing.Params) (*backend.ProductList, error)
	ListSharedInventory(ctx context.Context, params listing.Params) ([]backend.SharedBatch, error)
}

// Ledger performs confirmed bucket moves.
type Ledger interface {
	Transfer(ctx context.Context, cmd commands.TransferCommand) (*domain.Batch, error)
	Sell(ctx context.Context, cmd commands.SellCommand) (*commands.SaleOutcome, error)
}

type InventoryHandler struct {
	logger    *zap.Logger
	inventory InventoryReader
	ledger    Ledger
}

func NewInventoryHandler(logger *zap.Logger, inventory InventoryReader, ledger Ledger) *InventoryHandler {
	return &InventoryHandler{
		logger:    logger,
		inventory: inventory,
		ledger:    ledger,
	}
}

func bindListParams(c *gin.Context) (listing.Params, bool) {
	var params listing.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		abort(c, apierrors.NewInvalidRequest("invalid query parameters", err.Error()))
		return params, false
	}
	return params.Normalize(), true
}

// ListBatches handles GET /api/v1/batches
// @Summary      List batches
// @Description  Paged batch list forwarded to the inventory API. Status filters by bucket.
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Free text search"
// @Param        status     query     string  false  "DISPONIVEL, RESERVADO, VENDIDO or INATIVO"
// @Param        page       query     int     false  "Page number (default: 1)"
// @Param        page_size  query     int     false  "Items per page (default: 10, max: 100)"
// @Success      200        {object}  listing.Page[domain.Batch]
// @Failure      400        {object}  ErrorResponse
// @Failure      502        {object}  ErrorResponse
// @Router       /batches [get]
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	params, ok := bindListParams(c)
	if !ok {
		return
	}
	if params.Status != "" {
		if _, err := domain.ParseStatus(params.Status); err != nil {
			abort(c, apierrors.NewInvalidRequest("invalid status filter", "Status: "+params.Status))
			return
		}
	}

	list, err := h.inventory.ListBatches(requestContext(c), params)
	if err != nil {
		abort(c, err)
		return
	}
	batches := make([]domain.Batch, 0, len(list.Batches))
	for _, b := range list.Batches {
		batches = append(batches, b.ToDomain())
	}
	c.JSON(http.StatusOK, listing.NewPage(batches, list.Total, params))
}

// GetBatch handles GET /api/v1/batches/:id
// @Summary      Get batch
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  domain.Batch
// @Failure      404  {object}  ErrorResponse
// @Router       /batches/{id} [get]
func (h *InventoryHandler) GetBatch(c *gin.Context) {
	batch, err := h.inventory.GetBatch(requestContext(c), c.Param("id"))
	if err != nil {
		if backend.IsNotFound(err) {
			abort(c, apierrors.NewBatchNotFound(c.Param("id")))
			return
		}
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// TransferBatch handles POST /api/v1/batches/:id/transfer
// @Summary      Transfer slabs between statuses
// @Description  Validated locally, performed by the inventory API. The response carries the confirmed buckets.
// @Tags         batches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string           false  "Idempotency key"
// @Param        id            path      string           true   "Batch ID"
// @Param        request       body      TransferRequest  true   "Transfer"
// @Success      200           {object}  domain.Batch
// @Failure      400           {object}  ErrorResponse
// @Failure      404           {object}  ErrorResponse
// @Failure      409           {object}  ErrorResponse
// @Router       /batches/{id}/transfer [post]
func (h *InventoryHandler) TransferBatch(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	from, err := domain.ParseStatus(req.FromStatus)
	if err != nil {
		abort(c, err)
		return
	}
	to, err := domain.ParseStatus(req.ToStatus)
	if err != nil {
		abort(c, err)
		return
	}

	batch, err := h.ledger.Transfer(requestContext(c), commands.TransferCommand{
		BatchID:  c.Param("id"),
		From:     from,
		To:       to,
		Quantity: req.Quantity,
		UserID:   userID(c),
	})
	if err != nil {
		if backend.IsNotFound(err) {
			abort(c, apierrors.NewBatchNotFound(c.Param("id")))
			return
		}
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// SellBatch handles POST /api/v1/batches/:id/sell
// @Summary      Record a sale
// @Description  Requires a seller and a sale price at or above the batch base price for the quantity.
// @Tags         batches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string       false  "Idempotency key"
// @Param        id            path      string       true   "Batch ID"
// @Param        request       body      SellRequest  true   "Sale"
// @Success      201           {object}  commands.SaleOutcome
// @Failure      400           {object}  ErrorResponse
// @Failure      404           {object}  ErrorResponse
// @Router       /batches/{id}/sell [post]
func (h *InventoryHandler) SellBatch(c *gin.Context) {
	var req SellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	from, err := domain.ParseStatus(req.FromStatus)
	if err != nil {
		abort(c, err)
		return
	}
	amount, err := decimal.NewFromString(req.SalePrice)
	if err != nil {
		abort(c, apierrors.NewValidationError("invalid sale price", "salePrice"))
		return
	}

	var currency pricing.Currency
	if req.Currency != "" {
		if currency, err = pricing.ParseCurrency(req.Currency); err != nil {
			abort(c, apierrors.NewValidationError("invalid currency", "currency"))
			return
		}
	}

	outcome, err := h.ledger.Sell(requestContext(c), commands.SellCommand{
		BatchID:  c.Param("id"),
		From:     from,
		Quantity: req.Quantity,
		Sale: domain.SaleCapture{
			Seller:    domain.Seller{UserID: req.SellerID, Name: req.SellerName},
			Buyer:     domain.Buyer{ClienteID: req.ClienteID, NewCliente: req.NewCliente},
			SalePrice: pricing.NewMoney(amount, currency),
			Notes:     req.Notes,
		},
		UserID: userID(c),
	})
	if err != nil {
		if backend.IsNotFound(err) {
			abort(c, apierrors.NewBatchNotFound(c.Param("id")))
			return
		}
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// ListProducts handles GET /api/v1/products
// @Summary      List products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Free text search"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Items per page"
// @Success      200        {object}  listing.Page[backend.Product]
// @Router       /products [get]
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	params, ok := bindListParams(c)
	if !ok {
		return
	}
	list, err := h.inventory.ListProducts(requestContext(c), params)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, listing.NewPage(list.Products, list.Total, params))
}

// ListSharedInventory handles GET /api/v1/broker/shared-inventory
// @Summary      Inventory shared with the calling broker
// @Tags         broker
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Free text search"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Items per page"
// @Success      200        {object}  listing.Page[backend.SharedBatch]
// @Router       /broker/shared-inventory [get]
func (h *InventoryHandler) ListSharedInventory(c *gin.Context) {
	params, ok := bindListParams(c)
	if !ok {
		return
	}
	shared, err := h.inventory.ListSharedInventory(requestContext(c), params)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, listing.Paginate(shared, params))
}
