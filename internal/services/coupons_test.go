package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/db"
	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/pricing"
)

type fakeCouponStore struct {
	coupons    map[string]*models.Coupon
	increments []uuid.UUID
}

func (f *fakeCouponStore) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	coupon, ok := f.coupons[code]
	if !ok {
		return nil, db.ErrCouponNotFound
	}
	return coupon, nil
}

func (f *fakeCouponStore) IncrementUsage(_ context.Context, id uuid.UUID) error {
	f.increments = append(f.increments, id)
	return nil
}

func TestCouponServiceValidate(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	limit := 5

	store := &fakeCouponStore{coupons: map[string]*models.Coupon{
		"SAVE10": {
			ID: uuid.New(), Code: "SAVE10", DiscountType: models.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(10), IsActive: true, ExpiresAt: &future,
		},
		"RETIRED": {
			ID: uuid.New(), Code: "RETIRED", DiscountType: models.DiscountFixed,
			DiscountValue: decimal.NewFromInt(5), IsActive: false,
		},
		"EXPIRED": {
			ID: uuid.New(), Code: "EXPIRED", DiscountType: models.DiscountFixed,
			DiscountValue: decimal.NewFromInt(5), IsActive: true, ExpiresAt: &past,
		},
		"MAXEDOUT": {
			ID: uuid.New(), Code: "MAXEDOUT", DiscountType: models.DiscountFixed,
			DiscountValue: decimal.NewFromInt(5), IsActive: true,
			UsageLimit: &limit, UsageCount: 5,
		},
		"BIGSPEND": {
			ID: uuid.New(), Code: "BIGSPEND", DiscountType: models.DiscountFixed,
			DiscountValue: decimal.NewFromInt(20), IsActive: true,
			MinPurchaseAmount: decimal.NewFromInt(200),
		},
	}}

	service, err := NewCouponService(store, nil, nil)
	if err != nil {
		t.Fatalf("NewCouponService() error: %v", err)
	}

	tests := []struct {
		name       string
		code       string
		subtotal   string
		wantReason string
	}{
		{
			name:     "valid coupon passes",
			code:     "SAVE10",
			subtotal: "100",
		},
		{
			name:     "codes are case-insensitive",
			code:     " save10 ",
			subtotal: "100",
		},
		{
			name:       "unknown code gets the generic message",
			code:       "NOPE",
			subtotal:   "100",
			wantReason: "invalid coupon code",
		},
		{
			name:       "inactive coupon",
			code:       "RETIRED",
			subtotal:   "100",
			wantReason: "this coupon is no longer active",
		},
		{
			name:       "expired coupon",
			code:       "EXPIRED",
			subtotal:   "100",
			wantReason: "this coupon has expired",
		},
		{
			name:       "usage limit reached",
			code:       "MAXEDOUT",
			subtotal:   "100",
			wantReason: "this coupon has reached its usage limit",
		},
		{
			name:       "below minimum purchase",
			code:       "BIGSPEND",
			subtotal:   "100",
			wantReason: "a minimum purchase of 200 is required for this coupon",
		},
		{
			name:     "minimum purchase met exactly",
			code:     "BIGSPEND",
			subtotal: "200",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			coupon, err := service.Validate(context.Background(), tc.code, decimal.RequireFromString(tc.subtotal))
			if tc.wantReason == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				if coupon == nil {
					t.Fatal("Validate() returned nil coupon")
				}
				return
			}

			var validationErr *pricing.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if validationErr.Reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", validationErr.Reason, tc.wantReason)
			}
		})
	}
}

func TestCouponServiceRecordUsage(t *testing.T) {
	t.Parallel()

	store := &fakeCouponStore{coupons: map[string]*models.Coupon{}}
	service, _ := NewCouponService(store, nil, nil)

	id := uuid.New()
	if err := service.RecordUsage(context.Background(), id); err != nil {
		t.Fatalf("RecordUsage() error: %v", err)
	}
	if len(store.increments) != 1 || store.increments[0] != id {
		t.Fatalf("increments = %v, want [%s]", store.increments, id)
	}
}
