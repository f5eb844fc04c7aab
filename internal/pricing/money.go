package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code supported by the sales links.
type Currency string

const (
	BRL Currency = "BRL"
	USD Currency = "USD"
)

var (
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
)

// ParseCurrency accepts BRL or USD in any case.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case BRL:
		return BRL, nil
	case USD:
		return USD, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
}

// Money is a decimal amount tagged with its currency. Amounts stay in
// decimal form for all arithmetic; minor units only appear on the wire.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// NewMoney builds a Money from a decimal amount.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns a zero amount in the given currency.
func Zero(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// FromCents converts integer minor units into Money.
func FromCents(cents int64, currency Currency) Money {
	return Money{Amount: decimal.New(cents, -2), Currency: currency}
}

// Cents rounds half away from zero to two places and returns minor units.
func (m Money) Cents() int64 {
	return m.Amount.Round(2).Shift(2).IntPart()
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// MulInt scales the amount by an integer count.
func (m Money) MulInt(n int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(n))), Currency: m.Currency}
}

// Mul scales the amount by a decimal factor.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// LessThan compares amounts of the same currency.
func (m Money) LessThan(other Money) (bool, error) {
	if m.Currency != other.Currency {
		return false, ErrCurrencyMismatch
	}
	return m.Amount.LessThan(other.Amount), nil
}

// Format renders the amount for display, rounded to cents.
func (m Money) Format() string {
	symbol := "R$"
	if m.Currency == USD {
		symbol = "US$"
	}
	return symbol + " " + m.Amount.StringFixed(2)
}

func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + string(m.Currency)
}
