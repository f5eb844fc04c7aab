package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable is a non-blocking warning: the value was left as is.
var ErrRateUnavailable = errors.New("exchange rate unavailable, values not converted")

// Rate is the USD-BRL quote, expressed as BRL per 1 USD.
type Rate struct {
	BRLPerUSD decimal.Decimal `json:"brl_per_usd"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Convert re-expresses value in the target currency. Without a usable rate
// the value is returned unchanged together with ErrRateUnavailable.
func Convert(value Money, to Currency, rate *Rate) (Money, error) {
	if value.Currency == to {
		return value, nil
	}
	if rate == nil || !rate.BRLPerUSD.IsPositive() {
		return value, ErrRateUnavailable
	}

	switch {
	case value.Currency == USD && to == BRL:
		return Money{Amount: value.Amount.Mul(rate.BRLPerUSD), Currency: BRL}, nil
	case value.Currency == BRL && to == USD:
		return Money{Amount: value.Amount.Div(rate.BRLPerUSD), Currency: USD}, nil
	default:
		return value, ErrInvalidCurrency
	}
}
