package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
)

type fakeLookup struct {
	coupon *models.Coupon
	err    error
}

func (f *fakeLookup) Validate(_ context.Context, _ string, _ decimal.Decimal) (*models.Coupon, error) {
	return f.coupon, f.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyCoupon(t *testing.T) {
	t.Parallel()

	maxDiscount := dec("5")

	tests := []struct {
		name             string
		code             string
		subtotal         string
		lookup           *fakeLookup
		wantDiscount     string
		wantFreeShipping bool
		wantErrMessage   string
	}{
		{
			name:     "percentage discount",
			code:     "SAVE10",
			subtotal: "100",
			lookup: &fakeLookup{coupon: &models.Coupon{
				Code:          "SAVE10",
				DiscountType:  models.DiscountPercentage,
				DiscountValue: dec("10"),
				IsActive:      true,
			}},
			wantDiscount: "10",
		},
		{
			name:     "percentage discount clamped to max",
			code:     "SAVE10",
			subtotal: "100",
			lookup: &fakeLookup{coupon: &models.Coupon{
				Code:              "SAVE10",
				DiscountType:      models.DiscountPercentage,
				DiscountValue:     dec("10"),
				MaxDiscountAmount: &maxDiscount,
				IsActive:          true,
			}},
			wantDiscount: "5",
		},
		{
			name:     "fixed discount",
			code:     "TAKE15",
			subtotal: "100",
			lookup: &fakeLookup{coupon: &models.Coupon{
				Code:          "TAKE15",
				DiscountType:  models.DiscountFixed,
				DiscountValue: dec("15"),
				IsActive:      true,
			}},
			wantDiscount: "15",
		},
		{
			name:     "fixed discount never exceeds subtotal",
			code:     "TAKE50",
			subtotal: "30",
			lookup: &fakeLookup{coupon: &models.Coupon{
				Code:          "TAKE50",
				DiscountType:  models.DiscountFixed,
				DiscountValue: dec("50"),
				IsActive:      true,
			}},
			wantDiscount: "30",
		},
		{
			name:     "free shipping sentinel",
			code:     "FREESHIP",
			subtotal: "100",
			lookup: &fakeLookup{coupon: &models.Coupon{
				Code:          "FREESHIP",
				DiscountType:  models.DiscountFixed,
				DiscountValue: dec("0"),
				IsActive:      true,
			}},
			wantDiscount:     "0",
			wantFreeShipping: true,
		},
		{
			name:           "empty code is a local validation error",
			code:           "   ",
			subtotal:       "100",
			lookup:         &fakeLookup{},
			wantErrMessage: "enter a coupon code",
		},
		{
			name:           "service rejection message surfaces verbatim",
			code:           "EXPIRED1",
			subtotal:       "100",
			lookup:         &fakeLookup{err: &ValidationError{Reason: "this coupon expired on 2026-01-01"}},
			wantErrMessage: "this coupon expired on 2026-01-01",
		},
		{
			name:           "service rejection without message gets generic fallback",
			code:           "MYSTERY",
			subtotal:       "100",
			lookup:         &fakeLookup{err: &ValidationError{}},
			wantErrMessage: "invalid coupon code",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result, err := ApplyCoupon(context.Background(), tc.lookup, tc.code, dec(tc.subtotal))

			if tc.wantErrMessage != "" {
				var validationErr *ValidationError
				if !errors.As(err, &validationErr) {
					t.Fatalf("ApplyCoupon() error = %v, want ValidationError", err)
				}
				if validationErr.Error() != tc.wantErrMessage {
					t.Fatalf("error message = %q, want %q", validationErr.Error(), tc.wantErrMessage)
				}
				return
			}

			if err != nil {
				t.Fatalf("ApplyCoupon() unexpected error: %v", err)
			}
			if !result.Discount.Equal(dec(tc.wantDiscount)) {
				t.Fatalf("Discount = %s, want %s", result.Discount, tc.wantDiscount)
			}
			if result.FreeShipping != tc.wantFreeShipping {
				t.Fatalf("FreeShipping = %v, want %v", result.FreeShipping, tc.wantFreeShipping)
			}
		})
	}
}

func TestApplyCouponTransportErrorIsNotValidation(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{err: errors.New("dial tcp: connection refused")}
	_, err := ApplyCoupon(context.Background(), lookup, "SAVE10", dec("100"))
	if err == nil {
		t.Fatal("expected error")
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		t.Fatalf("transport error classified as validation error: %v", err)
	}
}

func TestDiscountNeverExceedsSubtotalProperty(t *testing.T) {
	t.Parallel()

	subtotals := []string{"0", "0.01", "1", "33.33", "100", "9999.99"}
	values := []string{"0", "5", "50", "100", "250"}

	for _, s := range subtotals {
		for _, v := range values {
			for _, dt := range []models.DiscountType{models.DiscountPercentage, models.DiscountFixed} {
				coupon := models.Coupon{Code: "X", DiscountType: dt, DiscountValue: dec(v), IsActive: true}
				discount := computeDiscount(coupon, dec(s))
				if discount.GreaterThan(dec(s)) {
					t.Fatalf("discount %s exceeds subtotal %s (type=%s value=%s)", discount, s, dt, v)
				}
				if discount.IsNegative() {
					t.Fatalf("discount %s negative (type=%s value=%s)", discount, dt, v)
				}
			}
		}
	}
}
