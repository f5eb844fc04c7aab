package domain

import (
	"strings"

	"slabdesk/internal/pricing"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Seller is either a system user or a free-text name, never both.
type Seller struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty" validate:"omitempty,max=120"`
}

// NewCliente is a buyer captured during the sale.
type NewCliente struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,min=8,max=20"`
}

// Buyer references an existing client, a new one, or nobody.
type Buyer struct {
	ClienteID  string      `json:"clienteId,omitempty"`
	NewCliente *NewCliente `json:"newCliente,omitempty"`
}

// IsNone reports that no buyer was captured.
func (b Buyer) IsNone() bool {
	return b.ClienteID == "" && b.NewCliente == nil
}

// SaleCapture is the metadata required before slabs move into VENDIDO.
type SaleCapture struct {
	Seller    Seller        `json:"seller"`
	Buyer     Buyer         `json:"buyer"`
	SalePrice pricing.Money `json:"salePrice"`
	Notes     string        `json:"notes,omitempty" validate:"max=1000"`
}

// Validate checks the capture against the batch for a sale of qty slabs
// taken from the given bucket. The floor is inclusive.
func (s *SaleCapture) Validate(batch *Batch, from Status, qty int) error {
	if err := batch.CheckTransfer(from, StatusSold, qty); err != nil {
		return err
	}

	hasUser := strings.TrimSpace(s.Seller.UserID) != ""
	hasName := strings.TrimSpace(s.Seller.Name) != ""
	if hasUser == hasName {
		return ErrSellerRequired
	}
	if s.Buyer.ClienteID != "" && s.Buyer.NewCliente != nil {
		return ErrAmbiguousBuyer
	}
	if err := validate.Struct(s); err != nil {
		return err
	}

	floor := batch.SaleFloor(qty)
	below, err := s.SalePrice.LessThan(floor)
	if err != nil {
		return ErrSaleCurrencyMismatch
	}
	if below {
		return &PriceBelowFloorError{Floor: floor.Format(), Price: s.SalePrice.Format()}
	}
	return nil
}
