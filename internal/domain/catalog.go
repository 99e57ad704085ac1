package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is an orderable lab test. Reference data: seeded or imported, never edited by users.
type CatalogItem struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ServiceFee is the flat add-on charged once per cart and per order.
var ServiceFee = decimal.RequireFromString("9.99")

// CentsToDecimal converts a stored cent amount to a price.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// DecimalToCents converts a price to whole cents, rounding half away from zero.
func DecimalToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
