package pricing

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
)

// Totals is the derived tax and grand total for an order.
type Totals struct {
	Tax   decimal.Decimal `json:"tax"`
	Total decimal.Decimal `json:"total"`
}

// Aggregate combines the pricing components into totals.
//
// Tax is computed on the pre-discount subtotal. That is the storefront's
// long-standing billing policy, confirmed with the product owner; do not
// move the discount ahead of tax. The total is not clamped at zero: a
// discount larger than the rest of the order produces a negative total,
// which the order review surfaces rather than hides.
func Aggregate(subtotal, shippingCost, taxRate, discount decimal.Decimal) Totals {
	tax := subtotal.Mul(taxRate)
	return Totals{
		Tax:   tax,
		Total: subtotal.Add(shippingCost).Add(tax).Sub(discount),
	}
}

// DraftInput collects everything the review step has settled on.
type DraftInput struct {
	UserID          string
	Items           []models.LineItem
	Method          Method
	ShippingCost    decimal.Decimal
	TaxRate         decimal.Decimal
	Discount        decimal.Decimal
	CouponCode      string
	Contact         models.ContactInfo
	ShippingAddress models.Address
	BillingAddress  models.Address
}

// BuildDraft assembles the immutable order draft, stamping the order number
// and creation time at this moment. It is called exactly once per checkout
// attempt, at the terminal transition out of the review step.
func BuildDraft(input DraftInput, now time.Time) (*models.OrderDraft, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("order draft requires at least one line item")
	}
	if !input.Method.Valid() {
		return nil, fmt.Errorf("order draft requires a shipping method, got %q", input.Method)
	}

	subtotal := models.Subtotal(input.Items)
	totals := Aggregate(subtotal, input.ShippingCost, input.TaxRate, input.Discount)

	items := make([]models.LineItem, len(input.Items))
	copy(items, input.Items)

	return &models.OrderDraft{
		UserID:           input.UserID,
		OrderNumber:      orderNumber(now),
		LineItems:        items,
		Subtotal:         subtotal,
		ShippingCost:     input.ShippingCost,
		ShippingMethodID: string(input.Method),
		Tax:              totals.Tax,
		TaxRate:          input.TaxRate,
		Discount:         input.Discount,
		CouponCode:       input.CouponCode,
		Total:            totals.Total,
		ContactInfo:      input.Contact,
		ShippingAddress:  input.ShippingAddress,
		BillingAddress:   input.BillingAddress,
		CreatedAt:        now,
	}, nil
}

func orderNumber(now time.Time) string {
	return "TC-" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}
