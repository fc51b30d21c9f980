package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
)

var ErrCouponNotFound = errors.New("coupon not found")

type CouponStore struct {
	pool *pgxpool.Pool
}

func NewCouponStore(pool *pgxpool.Pool) *CouponStore {
	return &CouponStore{pool: pool}
}

// GetByCode looks a coupon up case-insensitively.
func (s *CouponStore) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `
		SELECT id, code, discount_type, discount_value::text,
		       min_purchase_amount::text, max_discount_amount::text,
		       is_active, usage_limit, usage_count, expires_at, created_at
		FROM coupons
		WHERE UPPER(code) = $1
	`
	var (
		coupon        models.Coupon
		discountValue string
		minPurchase   string
		maxDiscount   pgtype.Text
		usageLimit    pgtype.Int4
		expiresAt     pgtype.Timestamptz
		createdAt     pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))).Scan(
		&coupon.ID, &coupon.Code, &coupon.DiscountType, &discountValue,
		&minPurchase, &maxDiscount,
		&coupon.IsActive, &usageLimit, &coupon.UsageCount, &expiresAt, &createdAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}

	if coupon.DiscountValue, err = decimal.NewFromString(discountValue); err != nil {
		return nil, fmt.Errorf("bad discount value %q: %w", discountValue, err)
	}
	if coupon.MinPurchaseAmount, err = decimal.NewFromString(minPurchase); err != nil {
		return nil, fmt.Errorf("bad min purchase %q: %w", minPurchase, err)
	}
	if maxDiscount.Valid {
		parsed, parseErr := decimal.NewFromString(maxDiscount.String)
		if parseErr != nil {
			return nil, fmt.Errorf("bad max discount %q: %w", maxDiscount.String, parseErr)
		}
		coupon.MaxDiscountAmount = &parsed
	}
	if usageLimit.Valid {
		limit := int(usageLimit.Int32)
		coupon.UsageLimit = &limit
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		coupon.ExpiresAt = &t
	}
	coupon.CreatedAt = createdAt.Time

	return &coupon, nil
}

// IncrementUsage bumps the redemption counter. Callers treat failures as
// non-fatal; the order has already been accepted at that point.
func (s *CouponStore) IncrementUsage(ctx context.Context, couponID uuid.UUID) error {
	query := `UPDATE coupons SET usage_count = usage_count + 1 WHERE id = $1`
	cmdTag, err := s.pool.Exec(ctx, query, couponID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// Create inserts a coupon. Used by admin tooling and tests.
func (s *CouponStore) Create(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}

	var maxDiscount pgtype.Text
	if coupon.MaxDiscountAmount != nil {
		maxDiscount = pgtype.Text{String: coupon.MaxDiscountAmount.String(), Valid: true}
	}
	var usageLimit pgtype.Int4
	if coupon.UsageLimit != nil {
		usageLimit = pgtype.Int4{Int32: int32(*coupon.UsageLimit), Valid: true}
	}
	var expiresAt pgtype.Timestamptz
	if coupon.ExpiresAt != nil {
		expiresAt = pgtype.Timestamptz{Time: coupon.ExpiresAt.UTC(), Valid: true}
	}

	query := `
		INSERT INTO coupons (
			id, code, discount_type, discount_value, min_purchase_amount,
			max_discount_amount, is_active, usage_limit, usage_count, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	var createdAt pgtype.Timestamptz
	err := s.pool.QueryRow(ctx, query,
		coupon.ID,
		strings.ToUpper(strings.TrimSpace(coupon.Code)),
		string(coupon.DiscountType),
		coupon.DiscountValue.String(),
		coupon.MinPurchaseAmount.String(),
		maxDiscount,
		coupon.IsActive,
		usageLimit,
		coupon.UsageCount,
		expiresAt,
	).Scan(&createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("coupon code %s already exists", coupon.Code)
		}
		return err
	}

	coupon.CreatedAt = createdAt.Time.UTC()
	return nil
}
