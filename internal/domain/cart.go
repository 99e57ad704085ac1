package domain

import "github.com/shopspring/decimal"

// MaxLineQuantity bounds the quantity of one cart or order line.
const MaxLineQuantity = 99

// CartLine is a client-held (item, quantity) pair.
type CartLine struct {
	Item     CatalogItem `json:"item"`
	Quantity int         `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CheckoutLine is what a client submits at checkout. Prices are never sent.
type CheckoutLine struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}
