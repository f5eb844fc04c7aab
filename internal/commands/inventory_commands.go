package commands

import (
	"slabdesk/internal/domain"
)

// TransferCommand moves slabs between two non-sold buckets.
type TransferCommand struct {
	BatchID  string
	From     domain.Status
	To       domain.Status
	Quantity int
	UserID   string
}

// SellCommand moves slabs into VENDIDO together with the sale details.
type SellCommand struct {
	BatchID  string
	From     domain.Status
	Quantity int
	Sale     domain.SaleCapture
	UserID   string
}

// SaleOutcome is the confirmed sale.
type SaleOutcome struct {
	SaleID    string        `json:"saleId"`
	ClienteID string        `json:"clienteId,omitempty"`
	Batch     *domain.Batch `json:"batch"`
}
