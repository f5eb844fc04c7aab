package composition

import (
	"fmt"

	"slabdesk/internal/pricing"

	"github.com/shopspring/decimal"
)

// Totals is the unrounded aggregate of a session.
type Totals struct {
	TotalPieces int             `json:"totalPieces"`
	TotalArea   decimal.Decimal `json:"totalArea"`
	TotalValue  pricing.Money   `json:"totalValue"`
}

// ComputeTotals sums pieces, area and quantity × piece price.
func ComputeTotals(s Session) Totals {
	totals := Totals{
		TotalArea:  decimal.Zero,
		TotalValue: pricing.Zero(s.Currency),
	}
	for _, item := range s.Items {
		totals.TotalPieces += item.Quantity
		totals.TotalArea = totals.TotalArea.Add(item.Batch.SlabArea().Mul(decimal.NewFromInt(int64(item.Quantity))))
		value := item.PiecePrice().MulInt(item.Quantity)
		totals.TotalValue.Amount = totals.TotalValue.Amount.Add(value.Amount)
	}
	return totals
}

// Issue is a per-item problem that blocks submission.
type Issue struct {
	BatchID   string `json:"batchId"`
	BatchCode string `json:"batchCode"`
	Reason    string `json:"reason"`
}

// Validate reports items whose quantity no longer fits the batch's
// available count.
func Validate(s Session) []Issue {
	var issues []Issue
	for _, item := range s.Items {
		available := item.Batch.Available()
		switch {
		case available <= 0:
			issues = append(issues, Issue{
				BatchID:   item.Batch.ID,
				BatchCode: item.Batch.Code,
				Reason:    "batch has no available slabs",
			})
		case item.Quantity > available:
			issues = append(issues, Issue{
				BatchID:   item.Batch.ID,
				BatchCode: item.Batch.Code,
				Reason:    fmt.Sprintf("quantity %d exceeds available %d", item.Quantity, available),
			})
		}
	}
	return issues
}
