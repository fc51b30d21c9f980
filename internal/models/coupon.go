package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is the read model handed to the pricing engine. Validation rules
// (active, expiry, minimum purchase, usage limits) are the coupon service's
// responsibility; the engine only computes the discount amount.
type Coupon struct {
	ID                uuid.UUID        `json:"id"`
	Code              string           `json:"code"`
	DiscountType      DiscountType     `json:"discountType"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MinPurchaseAmount decimal.Decimal  `json:"minPurchaseAmount"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	IsActive          bool             `json:"isActive"`
	UsageLimit        *int             `json:"usageLimit,omitempty"`
	UsageCount        int              `json:"usageCount"`
	ExpiresAt         *time.Time       `json:"expiresAt,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}
