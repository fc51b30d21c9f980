package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
)

// FreeShippingCode is the sentinel coupon code that zeroes the computed
// shipping cost for the selected method on top of its own discount.
const FreeShippingCode = "FREESHIP"

// ValidationError is a recoverable business rejection of a coupon code. The
// message is shown to the customer as-is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil || e.Reason == "" {
		return "invalid coupon code"
	}
	return e.Reason
}

// ErrEmptyCouponCode is the local validation error for a blank code; no
// lookup is performed.
var ErrEmptyCouponCode = &ValidationError{Reason: "enter a coupon code"}

// CouponLookup validates a code against an order subtotal. Implementations
// own the business rules (existence, active flag, expiry, minimum purchase,
// usage limits) and reject with a *ValidationError carrying a human-readable
// reason.
type CouponLookup interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*models.Coupon, error)
}

// CouponResult is a successfully applied coupon together with its computed
// discount. At most one coupon is active per checkout session.
type CouponResult struct {
	Coupon       models.Coupon   `json:"coupon"`
	Discount     decimal.Decimal `json:"discount"`
	FreeShipping bool            `json:"freeShipping"`
}

// ApplyCoupon validates code via lookup and computes the discount against
// subtotal. Percentage discounts are clamped to the coupon's maximum discount
// when one is set; no discount ever exceeds the subtotal.
func ApplyCoupon(ctx context.Context, lookup CouponLookup, code string, subtotal decimal.Decimal) (*CouponResult, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, ErrEmptyCouponCode
	}

	coupon, err := lookup.Validate(ctx, trimmed, subtotal)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			if validationErr.Reason == "" {
				return nil, &ValidationError{Reason: "invalid coupon code"}
			}
			return nil, validationErr
		}
		return nil, fmt.Errorf("coupon lookup failed: %w", err)
	}
	if coupon == nil {
		return nil, &ValidationError{Reason: "invalid coupon code"}
	}

	return &CouponResult{
		Coupon:       *coupon,
		Discount:     computeDiscount(*coupon, subtotal),
		FreeShipping: strings.EqualFold(coupon.Code, FreeShippingCode),
	}, nil
}

func computeDiscount(coupon models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	discount := coupon.DiscountValue
	if coupon.DiscountType == models.DiscountPercentage {
		discount = subtotal.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100))
	}
	if coupon.MaxDiscountAmount != nil && discount.GreaterThan(*coupon.MaxDiscountAmount) {
		discount = *coupon.MaxDiscountAmount
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount
}
