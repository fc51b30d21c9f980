package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/cache"
	"github.com/tidecartapp/tidecart/internal/db"
	"github.com/tidecartapp/tidecart/internal/logging"
	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/pricing"
)

const couponCacheTTL = time.Minute

type couponStore interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	IncrementUsage(ctx context.Context, couponID uuid.UUID) error
}

// CouponService owns the coupon business rules. The pricing engine only
// computes discount amounts; eligibility decisions and their customer-facing
// messages live here. Implements checkout.CouponService.
type CouponService struct {
	store  couponStore
	cache  cache.Provider
	logger *slog.Logger
}

func NewCouponService(store couponStore, cacheProvider cache.Provider, logger *slog.Logger) (*CouponService, error) {
	if store == nil {
		return nil, fmt.Errorf("coupon service store is required")
	}

	return &CouponService{
		store:  store,
		cache:  cacheProvider,
		logger: logger,
	}, nil
}

// Validate applies the eligibility rules in order: existence, active flag,
// expiry, usage limit, minimum purchase. The first failing rule decides the
// message shown to the customer.
func (s *CouponService) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*models.Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	coupon, err := s.lookup(ctx, normalized)
	if err != nil {
		if errors.Is(err, db.ErrCouponNotFound) {
			return nil, &pricing.ValidationError{Reason: "invalid coupon code"}
		}
		return nil, fmt.Errorf("coupon lookup failed: %w", err)
	}

	if !coupon.IsActive {
		return nil, &pricing.ValidationError{Reason: "this coupon is no longer active"}
	}
	if coupon.ExpiresAt != nil && time.Now().After(*coupon.ExpiresAt) {
		return nil, &pricing.ValidationError{Reason: "this coupon has expired"}
	}
	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		return nil, &pricing.ValidationError{Reason: "this coupon has reached its usage limit"}
	}
	if coupon.MinPurchaseAmount.IsPositive() && subtotal.LessThan(coupon.MinPurchaseAmount) {
		return nil, &pricing.ValidationError{
			Reason: fmt.Sprintf("a minimum purchase of %s is required for this coupon", coupon.MinPurchaseAmount),
		}
	}

	return coupon, nil
}

// RecordUsage bumps the redemption counter after an order is accepted.
// Cached entries may carry a stale count until their TTL lapses.
func (s *CouponService) RecordUsage(ctx context.Context, couponID uuid.UUID) error {
	return s.store.IncrementUsage(ctx, couponID)
}

func (s *CouponService) lookup(ctx context.Context, code string) (*models.Coupon, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cache.CouponKey(code)); err == nil {
			var coupon models.Coupon
			if err := json.Unmarshal([]byte(cached), &coupon); err == nil {
				return &coupon, nil
			}
		}
	}

	coupon, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(coupon); marshalErr == nil {
			if err := s.cache.Set(ctx, cache.CouponKey(code), string(payload), couponCacheTTL); err != nil {
				logging.FromContext(ctx, s.logger).Warn("failed to cache coupon", "error", err, "code", code)
			}
		}
	}

	return coupon, nil
}
