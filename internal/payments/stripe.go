// Package payments creates Stripe checkout sessions for submitted orders.
package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/observability"
)

// Client wraps the Stripe API for hosted checkout. The order total is
// already computed by the pricing engine; Stripe is only the payment rail,
// so the session carries a single line for the full amount.
type Client struct {
	client   *stripe.Client
	currency string
	baseURL  string
}

func NewClient(secretKey, currency, baseURL string) *Client {
	if currency == "" {
		currency = "usd"
	}
	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		HTTPClient: observability.NewHTTPClient(30 * time.Second),
	})
	return &Client{
		client:   stripe.NewClient(secretKey, stripe.WithBackends(backends)),
		currency: currency,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// CreateCheckoutSession creates a hosted checkout session for an order. The
// charged amount is the order total; zero and negative totals are rejected
// before reaching Stripe.
func (c *Client) CreateCheckoutSession(ctx context.Context, order *models.Order) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if order == nil {
		return nil, fmt.Errorf("order is required")
	}
	if !order.Total.IsPositive() {
		return nil, fmt.Errorf("order total %s is not chargeable", order.Total)
	}

	params := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(c.baseURL + "/checkout/complete?order=" + order.OrderNumber),
		CancelURL:          stripe.String(c.baseURL + "/checkout/review"),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(c.currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + order.OrderNumber),
					},
					UnitAmount: stripe.Int64(minorUnits(order.Total)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(order.ContactInfo.Email),
		Metadata: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
	}

	if order.ContactInfo.Email == "" {
		params.CustomerEmail = nil
	}

	sess, err := c.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess, nil
}

// minorUnits converts a decimal amount to the currency's smallest unit,
// rounding half up.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
