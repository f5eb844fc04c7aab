package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceUnit is the area unit a batch is priced in.
type PriceUnit string

const (
	M2  PriceUnit = "M2"
	FT2 PriceUnit = "FT2"
)

var (
	squareCentimetersPerSquareMeter = decimal.NewFromInt(10000)
	// SquareFeetPerSquareMeter converts m² into ft².
	SquareFeetPerSquareMeter = decimal.RequireFromString("10.7639")
)

// ParsePriceUnit accepts M2 or FT2 in any case.
func ParsePriceUnit(s string) (PriceUnit, error) {
	switch PriceUnit(strings.ToUpper(strings.TrimSpace(s))) {
	case M2, "":
		return M2, nil
	case FT2:
		return FT2, nil
	default:
		return "", fmt.Errorf("invalid price unit: %q", s)
	}
}

// TotalArea returns the area in m² of count slabs measuring height×width cm.
func TotalArea(height, width decimal.Decimal, count int) decimal.Decimal {
	perSlab := height.Mul(width).Div(squareCentimetersPerSquareMeter)
	return perSlab.Mul(decimal.NewFromInt(int64(count)))
}

// TotalPrice prices an area given in m². When the unit price is per ft² the
// area is converted first.
func TotalPrice(area decimal.Decimal, unitPrice Money, unit PriceUnit) Money {
	if unit == FT2 {
		area = area.Mul(SquareFeetPerSquareMeter)
	}
	return unitPrice.Mul(area)
}
