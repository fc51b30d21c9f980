package models

import (
	"github.com/shopspring/decimal"
)

// LineItem is one product+variant+quantity entry in an order. It is owned by
// the cart/product-selection flow and read-only to the pricing engine.
//
// The per-method shipping fields are deliberately loose (string, number, or
// absent) because the product catalog has accumulated every representation
// over the years. The shipping evaluator decides per method whether an item
// carries usable data.
type LineItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	ColorName string          `json:"colorName,omitempty"`
	Size      string          `json:"size,omitempty"`

	AirShippingPrice    any `json:"airShippingPrice,omitempty"`
	AirShippingDuration any `json:"airShippingDuration,omitempty"`
	SeaShippingPrice    any `json:"seaShippingPrice,omitempty"`
	SeaShippingDuration any `json:"seaShippingDuration,omitempty"`
}

// LineTotal returns unit price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Subtotal sums the line totals of all items.
func Subtotal(items []LineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}
