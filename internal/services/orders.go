package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/tidecartapp/tidecart/internal/checkout"
	"github.com/tidecartapp/tidecart/internal/email"
	"github.com/tidecartapp/tidecart/internal/logging"
	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/observability"
	"github.com/tidecartapp/tidecart/internal/pricing"
)

type orderStore interface {
	Create(ctx context.Context, draft *models.OrderDraft) (*models.Order, error)
	GetByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	UpdateStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
	MarkFulfilled(ctx context.Context, orderID uuid.UUID) error
}

type paymentClient interface {
	CreateCheckoutSession(ctx context.Context, order *models.Order) (*stripe.CheckoutSession, error)
}

// OrderService receives finished drafts from the checkout wizard, persists
// them, and hands the customer off to payment. Implements checkout.OrderSink.
type OrderService struct {
	orders   orderStore
	payments paymentClient
	email    email.Provider
	shopName string
	shopURL  string
	logger   *slog.Logger
}

func NewOrderService(orders orderStore, payments paymentClient, emailProvider email.Provider, shopName, shopURL string, logger *slog.Logger) (*OrderService, error) {
	if orders == nil {
		return nil, fmt.Errorf("order service store is required")
	}

	return &OrderService{
		orders:   orders,
		payments: payments,
		email:    emailProvider,
		shopName: shopName,
		shopURL:  shopURL,
		logger:   logger,
	}, nil
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// SubmitDraft persists the draft and creates a payment session. The order is
// accepted once it is stored; a payment session failure leaves the order in
// submitted state for a later retry rather than failing the checkout.
func (s *OrderService) SubmitDraft(ctx context.Context, draft *models.OrderDraft) (*checkout.SubmitAck, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.submit_draft",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("SubmitDraft"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, err := s.orders.Create(ctx, draft)
	if err != nil {
		meter.Count("order.create.failed", 1)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	meter.Count("order.created", 1, sentry.WithAttributes(
		attribute.String("shipping_method", order.ShippingMethodID),
	))

	ack := &checkout.SubmitAck{OrderNumber: order.OrderNumber}

	if s.payments != nil && order.Total.IsPositive() {
		session, payErr := s.payments.CreateCheckoutSession(ctx, order)
		if payErr != nil {
			meter.Count("payment.session.failed", 1)
			logger.Warn("failed to create payment session", "error", payErr, "order_number", order.OrderNumber)
		} else {
			if updateErr := s.orders.UpdateStripeSession(ctx, order.ID, session.ID); updateErr != nil {
				logger.Warn("failed to store payment session id", "error", updateErr, "order_number", order.OrderNumber)
			}
			ack.PaymentURL = session.URL
			meter.Count("payment.session.created", 1)
		}
	}

	s.sendConfirmationEmail(ctx, order, ack.PaymentURL)

	return ack, nil
}

// HandlePaymentCompleted marks the order behind a finished payment session
// as paid. Called from the payment webhook after signature validation.
func (s *OrderService) HandlePaymentCompleted(ctx context.Context, sessionID string) error {
	order, err := s.orders.GetByStripeSessionID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to find order for session: %w", err)
	}

	if err := s.orders.MarkPaid(ctx, order.ID); err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	observability.MeterFromContext(ctx).Count("order.paid", 1)
	return nil
}

// FulfillOrder transitions a paid order to fulfilled and notifies the
// customer.
func (s *OrderService) FulfillOrder(ctx context.Context, order *models.Order) error {
	if err := s.orders.MarkFulfilled(ctx, order.ID); err != nil {
		return err
	}

	observability.MeterFromContext(ctx).Count("order.fulfilled", 1)

	info := s.orderInfo(order, "")
	if err := email.SendOrderFulfilled(ctx, s.email, info); err != nil {
		s.loggerFromContext(ctx).Warn("failed to send fulfillment email", "error", err, "order_number", order.OrderNumber)
	}
	return nil
}

func (s *OrderService) sendConfirmationEmail(ctx context.Context, order *models.Order, paymentURL string) {
	info := s.orderInfo(order, paymentURL)
	if err := email.SendOrderConfirmation(ctx, s.email, info); err != nil {
		s.loggerFromContext(ctx).Warn("failed to send confirmation email", "error", err, "order_number", order.OrderNumber)
	}
}

func (s *OrderService) orderInfo(order *models.Order, paymentURL string) *email.OrderInfo {
	items := make([]email.OrderItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, email.OrderItem{
			Name:       item.Name,
			SKU:        item.ID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.StringFixed(2),
			TotalPrice: item.LineTotal().StringFixed(2),
		})
	}

	methodInfo := pricing.Method(order.ShippingMethodID).Info()
	eta := ""
	if methodInfo.FallbackDurationDays > 0 {
		eta = fmt.Sprintf("%d days", methodInfo.FallbackDurationDays)
	}

	discount := ""
	if order.Discount.IsPositive() {
		discount = order.Discount.StringFixed(2)
	}

	return &email.OrderInfo{
		OrderNumber:     order.OrderNumber,
		CustomerName:    strings.TrimSpace(order.ShippingAddress.FirstName + " " + order.ShippingAddress.LastName),
		CustomerEmail:   order.ContactInfo.Email,
		ShopName:        s.shopName,
		ShopURL:         s.shopURL,
		ShippingAddress: formatAddress(order.ShippingAddress),
		ShippingMethod:  methodInfo.DisplayName,
		DeliveryETA:     eta,
		PaymentURL:      paymentURL,
		OrderDate:       order.CreatedAt.Format("January 2, 2006"),
		Items:           items,
		Subtotal:        order.Subtotal.StringFixed(2),
		Shipping:        order.ShippingCost.StringFixed(2),
		Tax:             order.Tax.StringFixed(2),
		Discount:        discount,
		Total:           order.Total.StringFixed(2),
	}
}

func formatAddress(addr models.Address) string {
	lines := []string{
		strings.TrimSpace(addr.FirstName + " " + addr.LastName),
		addr.Line1,
	}
	if addr.Line2 != "" {
		lines = append(lines, addr.Line2)
	}
	lines = append(lines, fmt.Sprintf("%s, %s %s", addr.City, addr.State, addr.Zip), addr.Country)
	return strings.Join(lines, "\n")
}
