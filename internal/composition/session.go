package composition

import (
	"errors"

	"slabdesk/internal/domain"
	"slabdesk/internal/pricing"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateItem   = errors.New("batch is already part of this composition")
	ErrItemNotFound    = errors.New("batch is not part of this composition")
	ErrIndexOutOfRange = errors.New("item index out of range")
)

// LineItem is one selected batch. UnitPrice is per area unit of the batch
// (m² or ft²), expressed in the session currency.
type LineItem struct {
	Batch     domain.Batch  `json:"batch"`
	Quantity  int           `json:"quantity"`
	UnitPrice pricing.Money `json:"unitPrice"`
}

// BatchID is the id of the referenced batch.
func (i LineItem) BatchID() string {
	return i.Batch.ID
}

// PiecePrice is the price of one slab at the item's unit price.
func (i LineItem) PiecePrice() pricing.Money {
	return i.Batch.PiecePrice(i.UnitPrice)
}

// Session is an ordered draft selection of batches. Operations never mutate
// their input; each returns the next session value.
type Session struct {
	Items    []LineItem       `json:"items"`
	Currency pricing.Currency `json:"currency"`
}

// New returns an empty session in the given currency.
func New(currency pricing.Currency) Session {
	return Session{Items: []LineItem{}, Currency: currency}
}

func (s Session) clone() Session {
	items := make([]LineItem, len(s.Items))
	copy(items, s.Items)
	return Session{Items: items, Currency: s.Currency}
}

func (s Session) indexOf(batchID string) int {
	for i, item := range s.Items {
		if item.Batch.ID == batchID {
			return i
		}
	}
	return -1
}

// Item returns the line item for batchID.
func (s Session) Item(batchID string) (LineItem, bool) {
	if i := s.indexOf(batchID); i >= 0 {
		return s.Items[i], true
	}
	return LineItem{}, false
}

// AddItem appends batch with quantity 1 and its base price converted to the
// session currency. Without a rate the amount is kept and
// pricing.ErrRateUnavailable is returned alongside the updated session.
func AddItem(s Session, batch domain.Batch, rate *pricing.Rate) (Session, error) {
	if s.indexOf(batch.ID) >= 0 {
		return s, ErrDuplicateItem
	}

	price, warn := pricing.Convert(batch.BasePrice, s.Currency, rate)
	if warn != nil {
		price = pricing.NewMoney(batch.BasePrice.Amount, s.Currency)
	}

	next := s.clone()
	next.Items = append(next.Items, LineItem{
		Batch:     batch,
		Quantity:  1,
		UnitPrice: price,
	})
	return next, warn
}

// RemoveItem drops the item for batchID. Absent items are ignored.
func RemoveItem(s Session, batchID string) Session {
	i := s.indexOf(batchID)
	if i < 0 {
		return s
	}
	next := s.clone()
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	return next
}

// SetQuantity clamps n into [1, available] for the item's batch.
func SetQuantity(s Session, batchID string, n int) (Session, error) {
	i := s.indexOf(batchID)
	if i < 0 {
		return s, ErrItemNotFound
	}
	next := s.clone()
	next.Items[i].Quantity = ClampQuantity(n, next.Items[i].Batch.Available())
	return next, nil
}

// ClampQuantity bounds n into [1, available]. With nothing available the
// result is 1 and Validate reports the item.
func ClampQuantity(n, available int) int {
	if n > available {
		n = available
	}
	if n < 1 {
		n = 1
	}
	return n
}

// SetUnitPrice sets the per-area price in the session currency, clamped to ≥ 0.
func SetUnitPrice(s Session, batchID string, amount decimal.Decimal) (Session, error) {
	i := s.indexOf(batchID)
	if i < 0 {
		return s, ErrItemNotFound
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	next := s.clone()
	next.Items[i].UnitPrice = pricing.NewMoney(amount, s.Currency)
	return next, nil
}

// ChangeCurrency converts every unit price into to. The change applies to
// the whole session or not at all.
func ChangeCurrency(s Session, to pricing.Currency, rate *pricing.Rate) (Session, error) {
	if s.Currency == to {
		return s, nil
	}
	next := s.clone()
	next.Currency = to
	for i, item := range next.Items {
		converted, err := pricing.Convert(item.UnitPrice, to, rate)
		if err != nil {
			return s, err
		}
		next.Items[i].UnitPrice = converted
	}
	return next, nil
}

// MoveItem moves the item at index from to index to, shifting the rest.
func MoveItem(s Session, from, to int) (Session, error) {
	n := len(s.Items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return s, ErrIndexOutOfRange
	}
	if from == to {
		return s, nil
	}
	next := s.clone()
	item := next.Items[from]
	next.Items = append(next.Items[:from], next.Items[from+1:]...)
	next.Items = append(next.Items[:to], append([]LineItem{item}, next.Items[to:]...)...)
	return next, nil
}

// Refresh replaces batch snapshots with live data, keeping quantities and
// prices. Batches missing from live are left untouched.
func Refresh(s Session, live map[string]domain.Batch) Session {
	next := s.clone()
	for i, item := range next.Items {
		if batch, ok := live[item.Batch.ID]; ok {
			next.Items[i].Batch = batch
		}
	}
	return next
}
