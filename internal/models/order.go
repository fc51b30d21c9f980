package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusDraft     OrderStatus = "draft"
	StatusSubmitted OrderStatus = "submitted"
	StatusPaid      OrderStatus = "paid"
	StatusFulfilled OrderStatus = "fulfilled"
	StatusCancelled OrderStatus = "cancelled"
)

// ContactInfo is collected on the first checkout step.
type ContactInfo struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

// Address is collected on the second checkout step and doubles as the
// billing address unless the customer provides a separate one.
type Address struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Line1     string `json:"line1" validate:"required"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

// OrderDraft is the finalized, immutable pricing snapshot built once per
// checkout attempt at the review step and handed to the order store.
//
// Pricing invariants: Total = Subtotal + ShippingCost + Tax - Discount,
// Discount <= Subtotal, and Tax = Subtotal * TaxRate computed on the
// pre-discount subtotal.
type OrderDraft struct {
	UserID           string          `json:"userId,omitempty"`
	OrderNumber      string          `json:"orderNumber"`
	LineItems        []LineItem      `json:"lineItems"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingCost     decimal.Decimal `json:"shippingCost"`
	ShippingMethodID string          `json:"shippingMethodId"`
	Tax              decimal.Decimal `json:"tax"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	Discount         decimal.Decimal `json:"discount"`
	CouponCode       string          `json:"couponCode,omitempty"`
	Total            decimal.Decimal `json:"total"`
	ContactInfo      ContactInfo     `json:"contactInfo"`
	ShippingAddress  Address         `json:"shippingAddress"`
	BillingAddress   Address         `json:"billingAddress"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Order is the persisted record built from a submitted draft. Lifecycle
// timestamps are zero until the corresponding transition happens.
type Order struct {
	ID uuid.UUID `json:"id"`
	OrderDraft

	Status                  OrderStatus `json:"status"`
	StripeCheckoutSessionID string      `json:"-"`
	SubmittedAt             time.Time   `json:"submittedAt"`
	PaidAt                  time.Time   `json:"paidAt,omitzero"`
	FulfilledAt             time.Time   `json:"fulfilledAt,omitzero"`
	CancelledAt             time.Time   `json:"cancelledAt,omitzero"`
}
