package domain

import (
	"errors"
	"testing"

	"slabdesk/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func brl(s string) pricing.Money {
	return pricing.NewMoney(decimal.RequireFromString(s), pricing.BRL)
}

func TestSaleCapture_FloorIsInclusive(t *testing.T) {
	b := newTestBatch()
	// 2 slabs × 2.16 m² × 100
	floor := b.SaleFloor(2)
	assert.True(t, floor.Amount.Equal(decimal.NewFromInt(432)))

	atFloor := SaleCapture{Seller: Seller{UserID: "u-1"}, SalePrice: brl("432")}
	assert.NoError(t, atFloor.Validate(b, StatusAvailable, 2))

	below := SaleCapture{Seller: Seller{UserID: "u-1"}, SalePrice: brl("431.99")}
	err := below.Validate(b, StatusAvailable, 2)
	assert.True(t, errors.Is(err, ErrPriceBelowFloor))
	var floorErr *PriceBelowFloorError
	assert.True(t, errors.As(err, &floorErr))
	assert.Equal(t, "R$ 432.00", floorErr.Floor)
}

func TestSaleCapture_Seller(t *testing.T) {
	b := newTestBatch()

	none := SaleCapture{SalePrice: brl("1000")}
	assert.Equal(t, ErrSellerRequired, none.Validate(b, StatusAvailable, 1))

	both := SaleCapture{Seller: Seller{UserID: "u-1", Name: "João"}, SalePrice: brl("1000")}
	assert.Equal(t, ErrSellerRequired, both.Validate(b, StatusAvailable, 1))

	freeText := SaleCapture{Seller: Seller{Name: "João da Pedreira"}, SalePrice: brl("1000")}
	assert.NoError(t, freeText.Validate(b, StatusAvailable, 1))
}

func TestSaleCapture_Buyer(t *testing.T) {
	b := newTestBatch()

	ambiguous := SaleCapture{
		Seller:    Seller{UserID: "u-1"},
		Buyer:     Buyer{ClienteID: "c-1", NewCliente: &NewCliente{Name: "Marmoraria X"}},
		SalePrice: brl("1000"),
	}
	assert.Equal(t, ErrAmbiguousBuyer, ambiguous.Validate(b, StatusAvailable, 1))

	badEmail := SaleCapture{
		Seller:    Seller{UserID: "u-1"},
		Buyer:     Buyer{NewCliente: &NewCliente{Name: "Marmoraria X", Email: "nope"}},
		SalePrice: brl("1000"),
	}
	assert.Error(t, badEmail.Validate(b, StatusAvailable, 1))

	newBuyer := SaleCapture{
		Seller:    Seller{UserID: "u-1"},
		Buyer:     Buyer{NewCliente: &NewCliente{Name: "Marmoraria X", Email: "compras@x.com.br"}},
		SalePrice: brl("1000"),
	}
	assert.NoError(t, newBuyer.Validate(b, StatusAvailable, 1))
	assert.True(t, Buyer{}.IsNone())
}

func TestSaleCapture_CurrencyMismatch(t *testing.T) {
	b := newTestBatch()
	sale := SaleCapture{
		Seller:    Seller{UserID: "u-1"},
		SalePrice: pricing.NewMoney(decimal.NewFromInt(5000), pricing.USD),
	}

	assert.Equal(t, ErrSaleCurrencyMismatch, sale.Validate(b, StatusAvailable, 1))
}

func TestSaleCapture_QuantityChecks(t *testing.T) {
	b := newTestBatch()
	sale := SaleCapture{Seller: Seller{UserID: "u-1"}, SalePrice: brl("100000")}

	assert.True(t, errors.Is(sale.Validate(b, StatusAvailable, 11), ErrInsufficientQuantity))
	assert.Equal(t, ErrSameStatus, sale.Validate(b, StatusSold, 1))
	assert.NoError(t, sale.Validate(b, StatusReserved, 5))
}
