package backend

import (
	"time"

	"slabdesk/internal/domain"
	"slabdesk/internal/pricing"

	"github.com/shopspring/decimal"
)

// Link types accepted by POST /sales-links.
const (
	LinkTypeSingleBatch = "LOTE_UNICO"
	LinkTypeMultiBatch  = "MULTIPLOS_LOTES"
)

// Batch is the inventory API representation of a batch. Prices are integer
// minor units.
type Batch struct {
	ID             string          `json:"id"`
	BatchCode      string          `json:"batchCode"`
	ProductID      string          `json:"productId"`
	Product        *ProductRef     `json:"product,omitempty"`
	Height         decimal.Decimal `json:"height"`
	Width          decimal.Decimal `json:"width"`
	Thickness      decimal.Decimal `json:"thickness"`
	QuantitySlabs  int             `json:"quantitySlabs"`
	IndustryPrice  int64           `json:"industryPrice"`
	Currency       string          `json:"currency"`
	PriceUnit      string          `json:"priceUnit"`
	AvailableSlabs int             `json:"availableSlabs"`
	ReservedSlabs  int             `json:"reservedSlabs"`
	SoldSlabs      int             `json:"soldSlabs"`
	InactiveSlabs  int             `json:"inactiveSlabs"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ProductRef is the product summary embedded in a batch.
type ProductRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ToDomain converts the wire batch. Unknown currencies and units fall back
// to BRL and m².
func (b Batch) ToDomain() domain.Batch {
	currency, err := pricing.ParseCurrency(b.Currency)
	if err != nil {
		currency = pricing.BRL
	}
	unit, err := pricing.ParsePriceUnit(b.PriceUnit)
	if err != nil {
		unit = pricing.M2
	}
	out := domain.Batch{
		ID:         b.ID,
		Code:       b.BatchCode,
		ProductID:  b.ProductID,
		Height:     b.Height,
		Width:      b.Width,
		Thickness:  b.Thickness,
		TotalSlabs: b.QuantitySlabs,
		BasePrice:  pricing.FromCents(b.IndustryPrice, currency),
		PriceUnit:  unit,
		Buckets: domain.Buckets{
			Available: b.AvailableSlabs,
			Reserved:  b.ReservedSlabs,
			Sold:      b.SoldSlabs,
			Inactive:  b.InactiveSlabs,
		},
		UpdatedAt: b.UpdatedAt,
	}
	if b.Product != nil {
		out.ProductName = b.Product.Name
	}
	return out
}

// BatchList is a page of batches.
type BatchList struct {
	Batches []Batch `json:"batches"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
}

// Product is a catalogue entry.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Material   string `json:"material"`
	Finish     string `json:"finish,omitempty"`
	BatchCount int    `json:"batchCount"`
	IsActive   bool   `json:"isActive"`
}

// ProductList is a page of products.
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
}

// SharedBatch is a batch a broker has been granted access to.
type SharedBatch struct {
	ID              string    `json:"id"`
	Batch           Batch     `json:"batch"`
	NegotiatedPrice *int64    `json:"negotiatedPrice,omitempty"`
	SharedAt        time.Time `json:"sharedAt"`
}

// AvailabilityRequest is the body of PATCH /batches/:id/availability.
type AvailabilityRequest struct {
	Status     string `json:"status"`
	FromStatus string `json:"fromStatus"`
	Quantity   int    `json:"quantity"`
}

// SellRequest is the body of POST /batches/:id/sell. Amounts are cents.
type SellRequest struct {
	QuantitySlabsSold int    `json:"quantitySlabsSold"`
	FromStatus        string `json:"fromStatus"`
	SalePrice         int64  `json:"salePrice"`
	Currency          string `json:"currency"`
	SellerID          string `json:"sellerId,omitempty"`
	SellerName        string `json:"sellerName,omitempty"`
	ClienteID         string `json:"clienteId,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// SaleResult is the confirmed sale with the resulting batch.
type SaleResult struct {
	SaleID string `json:"saleId"`
	Batch  Batch  `json:"batch"`
}

// SalesLinkItem is one batch of a multi-batch link. UnitPriceAmount is the
// per-area price in cents of the link currency.
type SalesLinkItem struct {
	BatchID         string `json:"batchId"`
	Quantity        int    `json:"quantity"`
	UnitPriceAmount int64  `json:"unitPriceAmount"`
}

// CreateSalesLinkRequest is the body of POST /sales-links. Single-batch
// links use BatchID and DisplayPrice; multi-batch links use Items.
type CreateSalesLinkRequest struct {
	LinkType        string          `json:"linkType"`
	SlugToken       string          `json:"slugToken"`
	Title           string          `json:"title,omitempty"`
	CustomMessage   string          `json:"customMessage,omitempty"`
	DisplayCurrency string          `json:"displayCurrency"`
	ShowPrice       bool            `json:"showPrice"`
	IsActive        bool            `json:"isActive"`
	ExpiresAt       *time.Time      `json:"expiresAt,omitempty"`
	BatchID         string          `json:"batchId,omitempty"`
	Quantity        int             `json:"quantity,omitempty"`
	DisplayPrice    *int64          `json:"displayPrice,omitempty"`
	Items           []SalesLinkItem `json:"items,omitempty"`
}

// SalesLink is the created link.
type SalesLink struct {
	ID        string `json:"id"`
	SlugToken string `json:"slugToken"`
	FullURL   string `json:"fullUrl"`
	LinkType  string `json:"linkType"`
}

// Cliente is an end customer.
type Cliente struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Whatsapp  string    `json:"whatsapp,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasContact reports whether the client can receive a link.
func (c Cliente) HasContact() bool {
	return c.Email != "" || c.Phone != "" || c.Whatsapp != ""
}

// ClienteList is a page of clients.
type ClienteList struct {
	Clientes []Cliente `json:"clientes"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
}

// CreateClienteRequest is the body of POST /clientes.
type CreateClienteRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=120"`
	Email    string `json:"email,omitempty" binding:"omitempty,email"`
	Phone    string `json:"phone,omitempty" binding:"omitempty,min=8,max=20"`
	Whatsapp string `json:"whatsapp,omitempty" binding:"omitempty,min=8,max=20"`
}

// InviteBrokerRequest is the body of POST /brokers/invite.
type InviteBrokerRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=120"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone,omitempty"`
}

// User is a team member as returned by the admin endpoints.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// ShareRequest is the body of POST /sales-links/:id/share.
type ShareRequest struct {
	ClienteID string `json:"clienteId"`
	Message   string `json:"message,omitempty"`
}
