package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrDuplicateOrderNumber    = errors.New("order number already exists")
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create persists a submitted draft. Monetary values are stored as numeric
// columns; line items and addresses are stored as JSON documents.
func (s *OrderStore) Create(ctx context.Context, draft *models.OrderDraft) (*models.Order, error) {
	lineItemsJSON, err := json.Marshal(draft.LineItems)
	if err != nil {
		return nil, err
	}
	shippingAddrJSON, err := json.Marshal(draft.ShippingAddress)
	if err != nil {
		return nil, err
	}
	billingAddrJSON, err := json.Marshal(draft.BillingAddress)
	if err != nil {
		return nil, err
	}

	var userID pgtype.UUID
	if draft.UserID != "" {
		parsed, parseErr := uuid.Parse(draft.UserID)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", draft.UserID, parseErr)
		}
		userID = pgtype.UUID{Bytes: parsed, Valid: true}
	}

	query := `
		INSERT INTO orders (
			order_number, user_id, line_items, subtotal, shipping_cost,
			shipping_method_id, tax, tax_rate, discount, coupon_code, total,
			customer_email, customer_phone, shipping_address, billing_address,
			status, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		RETURNING id, submitted_at
	`
	order := &models.Order{
		OrderDraft: *draft,
		Status:     models.StatusSubmitted,
	}
	var submittedAt pgtype.Timestamptz
	err = s.pool.QueryRow(ctx, query,
		draft.OrderNumber,
		userID,
		lineItemsJSON,
		draft.Subtotal.String(),
		draft.ShippingCost.String(),
		draft.ShippingMethodID,
		draft.Tax.String(),
		draft.TaxRate.String(),
		draft.Discount.String(),
		pgtype.Text{String: draft.CouponCode, Valid: draft.CouponCode != ""},
		draft.Total.String(),
		draft.ContactInfo.Email,
		draft.ContactInfo.Phone,
		shippingAddrJSON,
		billingAddrJSON,
		string(models.StatusSubmitted),
	).Scan(&order.ID, &submittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateOrderNumber
		}
		return nil, err
	}

	order.SubmittedAt = submittedAt.Time
	return order, nil
}

func (s *OrderStore) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, line_items,
		       subtotal::text, shipping_cost::text, shipping_method_id,
		       tax::text, tax_rate::text, discount::text, coupon_code, total::text,
		       customer_email, customer_phone, shipping_address, billing_address,
		       status, stripe_checkout_session_id,
		       submitted_at, paid_at, fulfilled_at, cancelled_at
		FROM orders
		WHERE order_number = $1
	`
	row := s.pool.QueryRow(ctx, query, orderNumber)
	return scanOrder(row)
}

func (s *OrderStore) GetByStripeSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	query := `
		SELECT id, order_number, user_id, line_items,
		       subtotal::text, shipping_cost::text, shipping_method_id,
		       tax::text, tax_rate::text, discount::text, coupon_code, total::text,
		       customer_email, customer_phone, shipping_address, billing_address,
		       status, stripe_checkout_session_id,
		       submitted_at, paid_at, fulfilled_at, cancelled_at
		FROM orders
		WHERE stripe_checkout_session_id = $1
	`
	row := s.pool.QueryRow(ctx, query, sessionID)
	return scanOrder(row)
}

func (s *OrderStore) UpdateStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	query := `UPDATE orders SET stripe_checkout_session_id = $1 WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, sessionID, orderID)
	return err
}

func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, paid_at = NOW()
		WHERE id = $2 AND status = 'submitted'
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(models.StatusPaid), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected submitted", ErrInvalidStatusTransition)
	}
	return nil
}

func (s *OrderStore) MarkFulfilled(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, fulfilled_at = NOW()
		WHERE id = $2 AND status = 'paid'
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(models.StatusFulfilled), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected paid", ErrInvalidStatusTransition)
	}
	return nil
}

func (s *OrderStore) MarkCancelled(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = $1, cancelled_at = NOW()
		WHERE id = $2 AND status IN ('submitted', 'paid')
	`
	cmdTag, err := s.pool.Exec(ctx, query, string(models.StatusCancelled), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected submitted/paid", ErrInvalidStatusTransition)
	}
	return nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order            models.Order
		userID           pgtype.UUID
		lineItemsJSON    []byte
		subtotal         string
		shippingCost     string
		tax              string
		taxRate          string
		discount         string
		couponCode       pgtype.Text
		total            string
		shippingAddrJSON []byte
		billingAddrJSON  []byte
		status           string
		stripeSessionID  pgtype.Text
		submittedAt      pgtype.Timestamptz
		paidAt           pgtype.Timestamptz
		fulfilledAt      pgtype.Timestamptz
		cancelledAt      pgtype.Timestamptz
	)

	err := row.Scan(
		&order.ID, &order.OrderNumber, &userID, &lineItemsJSON,
		&subtotal, &shippingCost, &order.ShippingMethodID,
		&tax, &taxRate, &discount, &couponCode, &total,
		&order.ContactInfo.Email, &order.ContactInfo.Phone,
		&shippingAddrJSON, &billingAddrJSON,
		&status, &stripeSessionID,
		&submittedAt, &paidAt, &fulfilledAt, &cancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if order.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, fmt.Errorf("bad subtotal %q: %w", subtotal, err)
	}
	if order.ShippingCost, err = decimal.NewFromString(shippingCost); err != nil {
		return nil, fmt.Errorf("bad shipping cost %q: %w", shippingCost, err)
	}
	if order.Tax, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("bad tax %q: %w", tax, err)
	}
	if order.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return nil, fmt.Errorf("bad tax rate %q: %w", taxRate, err)
	}
	if order.Discount, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("bad discount %q: %w", discount, err)
	}
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("bad total %q: %w", total, err)
	}

	if err := json.Unmarshal(lineItemsJSON, &order.LineItems); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shippingAddrJSON, &order.ShippingAddress); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(billingAddrJSON, &order.BillingAddress); err != nil {
		return nil, err
	}

	if userID.Valid {
		order.UserID = uuid.UUID(userID.Bytes).String()
	}
	if couponCode.Valid {
		order.CouponCode = couponCode.String
	}
	if stripeSessionID.Valid {
		order.StripeCheckoutSessionID = stripeSessionID.String
	}
	order.Status = models.OrderStatus(status)
	order.SubmittedAt = submittedAt.Time
	order.CreatedAt = submittedAt.Time
	if paidAt.Valid {
		order.PaidAt = paidAt.Time
	}
	if fulfilledAt.Valid {
		order.FulfilledAt = fulfilledAt.Time
	}
	if cancelledAt.Valid {
		order.CancelledAt = cancelledAt.Time
	}

	return &order, nil
}
