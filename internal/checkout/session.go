// Package checkout drives the four-step checkout wizard and owns the
// session state for one checkout attempt.
package checkout

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/pricing"
)

// Step is a wizard position. Transitions are linear; skipping forward is
// never allowed, moving to any strictly lower step always is.
type Step int

const (
	StepContact Step = iota + 1
	StepAddress
	StepDelivery
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepContact:
		return "contact"
	case StepAddress:
		return "address"
	case StepDelivery:
		return "delivery"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Session is the mutable state of one checkout attempt. It is discarded on
// navigation away or successful submission; line items are fixed for its
// lifetime (quantity edits restart checkout).
type Session struct {
	ID             string             `json:"id"`
	Step           Step               `json:"step"`
	Items          []models.LineItem  `json:"items"`
	Contact        models.ContactInfo `json:"contact"`
	Address        models.Address     `json:"address"`
	BillingAddress *models.Address    `json:"billingAddress,omitempty"`
	Method         pricing.Method     `json:"method,omitempty"`
	Coupon         *pricing.CouponResult `json:"coupon,omitempty"`
	GuestUserID    string             `json:"guestUserId,omitempty"`
	Completed      bool               `json:"completed"`
	CreatedAt      time.Time          `json:"createdAt"`

	// couponAttempt invalidates coupon validation responses that arrive
	// after the customer has already issued a newer request. Not persisted;
	// a restored session simply starts a fresh sequence.
	couponAttempt atomic.Uint64
}

// NewSession starts a checkout attempt over a fixed set of line items.
func NewSession(items []models.LineItem) (*Session, error) {
	if len(items) == 0 {
		return nil, ErrNoLineItems
	}
	for i, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("line item %d (%s) has quantity %d, want >= 1", i, item.ID, item.Quantity)
		}
	}

	owned := make([]models.LineItem, len(items))
	copy(owned, items)

	return &Session{
		ID:        uuid.NewString(),
		Step:      StepContact,
		Items:     owned,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Subtotal is the pre-shipping, pre-tax, pre-discount sum of the line items.
func (s *Session) Subtotal() decimal.Decimal {
	return models.Subtotal(s.Items)
}

// beginCouponAttempt reserves a new attempt token; couponAttemptCurrent
// reports whether the token is still the latest one.
func (s *Session) beginCouponAttempt() uint64 {
	return s.couponAttempt.Add(1)
}

func (s *Session) couponAttemptCurrent(token uint64) bool {
	return s.couponAttempt.Load() == token
}
