package handlers

import (
	"time"

	"slabdesk/internal/activity"
	"slabdesk/internal/composition"
	"slabdesk/internal/domain"
	"slabdesk/internal/workflow"

	"github.com/shopspring/decimal"
)

// ErrorResponse represents an error response
// @Description Error body rendered by the error middleware
type ErrorResponse struct {
	// Error code
	Error string `json:"error" example:"InsufficientQuantity"`

	// Human-readable message
	Message string `json:"message" example:"insufficient quantity in source status"`

	// Additional details
	Details string `json:"details" example:"Available: 2, Requested: 3"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message" example:"invite sent"`
}

// TransferRequest represents the request body for a bucket transfer
// @Description Move slabs between two non-sold statuses
type TransferRequest struct {
	// Source status
	FromStatus string `json:"fromStatus" binding:"required" example:"DISPONIVEL"`

	// Target status (VENDIDO is only reachable through /sell)
	ToStatus string `json:"toStatus" binding:"required" example:"RESERVADO"`

	// Number of slabs, must be positive
	Quantity int `json:"quantity" binding:"required,min=1" example:"3"`
}

// SellRequest represents the request body for a sale
// @Description Sale capture moving slabs into VENDIDO
type SellRequest struct {
	FromStatus string `json:"fromStatus" binding:"required" example:"RESERVADO"`
	Quantity   int    `json:"quantity" binding:"required,min=1" example:"2"`

	// Total sale price as a decimal string in the batch currency
	SalePrice string `json:"salePrice" binding:"required" example:"5400.00"`

	// Defaults to the batch currency
	Currency string `json:"currency,omitempty" example:"BRL"`

	// Exactly one of sellerId or sellerName
	SellerID   string `json:"sellerId,omitempty" example:"user-42"`
	SellerName string `json:"sellerName,omitempty" example:"João da Pedreira"`

	// At most one of clienteId or newCliente
	ClienteID  string             `json:"clienteId,omitempty" example:"c-1"`
	NewCliente *domain.NewCliente `json:"newCliente,omitempty"`

	Notes string `json:"notes,omitempty" example:"pickup on friday"`
}

// CreateCompositionRequest starts a new draft
type CreateCompositionRequest struct {
	Currency string `json:"currency" example:"BRL"`
}

// AddItemRequest adds one batch to a draft
type AddItemRequest struct {
	BatchID string `json:"batchId" binding:"required" example:"b-1"`
}

// UpdateItemRequest changes the quantity and/or unit price of an item
type UpdateItemRequest struct {
	Quantity *int `json:"quantity,omitempty" example:"3"`

	// Per-area price in the draft currency
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty" swaggertype:"string" example:"120.50"`
}

// MoveItemRequest reorders items
type MoveItemRequest struct {
	From *int `json:"from" binding:"required" example:"2"`
	To   *int `json:"to" binding:"required" example:"0"`
}

// ChangeCurrencyRequest switches the draft currency
type ChangeCurrencyRequest struct {
	Currency string `json:"currency" binding:"required" example:"USD"`
}

// SlugRequest asks for a debounced availability check
type SlugRequest struct {
	Slug string `json:"slug" example:"granito-sao-gabriel"`
}

// TotalsResponse is the computed aggregate of a draft
type TotalsResponse struct {
	TotalPieces int    `json:"totalPieces" example:"6"`
	TotalArea   string `json:"totalArea" example:"12.96"`
	TotalValue  string `json:"totalValue" example:"1296.00"`
	Currency    string `json:"currency" example:"BRL"`

	// Display string rounded to cents
	Formatted string              `json:"formatted" example:"R$ 1296.00"`
	Issues    []composition.Issue `json:"issues"`
}

// DraftResponse is a draft with its totals and non-blocking warnings
type DraftResponse struct {
	Draft    workflow.Draft `json:"draft"`
	Totals   TotalsResponse `json:"totals"`
	Warnings []string       `json:"warnings,omitempty"`
}

// SubmitFailureResponse is returned when a submission did not produce a
// link. The draft is kept for correction.
type SubmitFailureResponse struct {
	Error   string        `json:"error" example:"StaleSelection"`
	Message string        `json:"message"`
	Details string        `json:"details"`
	Draft   DraftResponse `json:"draft"`
}

// SendLinkRequest delivers a link to several clients
type SendLinkRequest struct {
	ClienteIDs []string `json:"clienteIds" binding:"required,min=1,max=200" example:"c-1,c-2"`
	Message    string   `json:"message,omitempty" binding:"max=2000"`
}

// UpdateUserStatusRequest activates or deactivates a user
type UpdateUserStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required" example:"false"`
}

// QuoteResponse is the current USD-BRL rate
type QuoteResponse struct {
	Pair      string    `json:"pair" example:"USD-BRL"`
	Bid       string    `json:"bid" example:"5.0123"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ActivityResponse is one page of the activity log
type ActivityResponse struct {
	Entries []activity.Entry `json:"entries"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// HealthResponse is the liveness body
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Service   string            `json:"service" example:"slabdesk-api"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}
