package domain

import (
	"time"

	"slabdesk/internal/pricing"

	"github.com/shopspring/decimal"
)

// Buckets holds the slab count of each status.
type Buckets struct {
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Sold      int `json:"sold"`
	Inactive  int `json:"inactive"`
}

// Get returns the count for status, zero for unknown statuses.
func (b Buckets) Get(status Status) int {
	switch status {
	case StatusAvailable:
		return b.Available
	case StatusReserved:
		return b.Reserved
	case StatusSold:
		return b.Sold
	case StatusInactive:
		return b.Inactive
	}
	return 0
}

func (b *Buckets) add(status Status, delta int) {
	switch status {
	case StatusAvailable:
		b.Available += delta
	case StatusReserved:
		b.Reserved += delta
	case StatusSold:
		b.Sold += delta
	case StatusInactive:
		b.Inactive += delta
	}
}

// Total is the sum of all buckets.
func (b Buckets) Total() int {
	return b.Available + b.Reserved + b.Sold + b.Inactive
}

// Batch is a physical lot of slabs sharing dimensions and a base price.
type Batch struct {
	ID          string            `json:"id"`
	Code        string            `json:"code"`
	ProductID   string            `json:"productId,omitempty"`
	ProductName string            `json:"productName"`
	Height      decimal.Decimal   `json:"height"`
	Width       decimal.Decimal   `json:"width"`
	Thickness   decimal.Decimal   `json:"thickness"`
	TotalSlabs  int               `json:"totalSlabs"`
	BasePrice   pricing.Money     `json:"basePrice"`
	PriceUnit   pricing.PriceUnit `json:"priceUnit"`
	Buckets     Buckets           `json:"buckets"`
	Version     int               `json:"version"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// NewBatch creates a batch with every slab available.
func NewBatch(id, code string, height, width decimal.Decimal, totalSlabs int, basePrice pricing.Money, unit pricing.PriceUnit) *Batch {
	return &Batch{
		ID:         id,
		Code:       code,
		Height:     height,
		Width:      width,
		TotalSlabs: totalSlabs,
		BasePrice:  basePrice,
		PriceUnit:  unit,
		Buckets:    Buckets{Available: totalSlabs},
		Version:    1,
		UpdatedAt:  time.Now(),
	}
}

// Available is the count in the DISPONIVEL bucket.
func (b *Batch) Available() int {
	return b.Buckets.Available
}

// SlabArea is the area in m² of a single slab.
func (b *Batch) SlabArea() decimal.Decimal {
	return pricing.TotalArea(b.Height, b.Width, 1)
}

// PiecePrice prices one slab at unitPrice per area unit of the batch.
func (b *Batch) PiecePrice(unitPrice pricing.Money) pricing.Money {
	return pricing.TotalPrice(b.SlabArea(), unitPrice, b.PriceUnit)
}

// SaleFloor is the base price of qty slabs; a sale below it is rejected.
func (b *Batch) SaleFloor(qty int) pricing.Money {
	return pricing.TotalPrice(pricing.TotalArea(b.Height, b.Width, qty), b.BasePrice, b.PriceUnit)
}

// CheckTransfer validates moving qty slabs from one bucket to another
// without mutating the batch.
func (b *Batch) CheckTransfer(from, to Status, qty int) error {
	if !from.Valid() || !to.Valid() {
		return ErrUnknownStatus
	}
	if from == to {
		return ErrSameStatus
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > b.Buckets.Get(from) {
		return &InsufficientQuantityError{Status: from, Available: b.Buckets.Get(from), Requested: qty}
	}
	return nil
}

// Transfer moves qty slabs between buckets. The total is conserved.
func (b *Batch) Transfer(from, to Status, qty int) error {
	if err := b.CheckTransfer(from, to, qty); err != nil {
		return err
	}
	b.Buckets.add(from, -qty)
	b.Buckets.add(to, qty)
	b.UpdatedAt = time.Now()
	b.Version++
	return nil
}

// ApplyBuckets replaces the buckets with the server-confirmed counts.
func (b *Batch) ApplyBuckets(buckets Buckets) error {
	next := *b
	next.Buckets = buckets
	if err := next.CheckInvariant(); err != nil {
		return err
	}
	b.Buckets = buckets
	b.UpdatedAt = time.Now()
	b.Version++
	return nil
}

// CheckInvariant verifies that the buckets are non-negative and sum to the
// total slab count.
func (b *Batch) CheckInvariant() error {
	for _, s := range AllStatuses {
		if b.Buckets.Get(s) < 0 {
			return ErrBucketsInconsistent
		}
	}
	if b.Buckets.Total() != b.TotalSlabs {
		return ErrBucketsInconsistent
	}
	return nil
}
