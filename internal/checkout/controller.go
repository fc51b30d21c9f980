package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/logging"
	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/observability"
	"github.com/tidecartapp/tidecart/internal/pricing"
)

var (
	ErrNoLineItems         = errors.New("checkout requires at least one line item")
	ErrStepOrder           = errors.New("previous checkout steps are not complete")
	ErrBackwardOnly        = errors.New("cannot jump forward to a later step")
	ErrNoMethodSelected    = errors.New("select a shipping method to continue")
	ErrMethodUnavailable   = errors.New("the selected shipping method is not available for these items")
	ErrRequestInFlight     = errors.New("a request for this action is already in progress")
	ErrSuperseded          = errors.New("response superseded by a newer request")
	ErrShippingUnavailable = errors.New("shipping options could not be loaded, check your connection and try again")
	ErrSessionCompleted    = errors.New("this checkout has already been submitted")
	ErrInternal            = errors.New("something went wrong, please try again")
)

// ValidationError reports which required fields a step is missing. It blocks
// the transition and is recoverable by user correction, so it is never
// logged as exceptional.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// GuestRegistrar creates an account for a customer who opted in during the
// contact step. A failure blocks the Contact -> Address transition.
type GuestRegistrar interface {
	Register(ctx context.Context, input RegistrationInput) (*RegisteredGuest, error)
}

type RegistrationInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Password  string `json:"password" validate:"required,min=8"`
}

type RegisteredGuest struct {
	UserID string
	Token  string
}

// CouponService validates codes and records usage once an order is placed.
type CouponService interface {
	pricing.CouponLookup
	RecordUsage(ctx context.Context, couponID uuid.UUID) error
}

// SettingsSource supplies the storefront's tax configuration and shipping
// method catalog.
type SettingsSource interface {
	TaxConfig(ctx context.Context) (models.TaxConfig, error)
	ShippingMethods(ctx context.Context) ([]pricing.MethodInfo, error)
}

// OrderSink receives the finished order draft. It owns the order lifecycle
// from there (draft -> submitted -> fulfilled).
type OrderSink interface {
	SubmitDraft(ctx context.Context, draft *models.OrderDraft) (*SubmitAck, error)
}

type SubmitAck struct {
	OrderNumber string `json:"orderNumber"`
	PaymentURL  string `json:"paymentUrl,omitempty"`
}

// MethodOption pairs a catalog entry with its computed quote for the
// session's line items.
type MethodOption struct {
	Info  pricing.MethodInfo    `json:"info"`
	Quote pricing.ShippingQuote `json:"quote"`
}

// PriceSummary is the full pricing breakdown shown on every step.
type PriceSummary struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	TaxRate      decimal.Decimal `json:"taxRate"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	Method       pricing.Method  `json:"method,omitempty"`
	CouponCode   string          `json:"couponCode,omitempty"`
}

const defaultShippingTimeout = 5 * time.Second

// Controller gates the wizard transitions. All collaborator calls go through
// injected interfaces; the controller itself holds no ambient state beyond
// the in-flight request registry.
type Controller struct {
	evaluator *pricing.Evaluator
	registrar GuestRegistrar
	coupons   CouponService
	settings  SettingsSource
	sink      OrderSink
	validate  *validator.Validate
	logger    *slog.Logger
	clock     func() time.Time

	shippingTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

type Dependencies struct {
	Registrar GuestRegistrar
	Coupons   CouponService
	Settings  SettingsSource
	Sink      OrderSink
	Logger    *slog.Logger

	// ShippingTimeout bounds the shipping-options fetch; zero means the
	// 5 second default.
	ShippingTimeout time.Duration
	Clock           func() time.Time
}

func NewController(deps Dependencies) (*Controller, error) {
	if deps.Coupons == nil {
		return nil, fmt.Errorf("checkout controller: coupon service is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("checkout controller: settings source is required")
	}
	if deps.Sink == nil {
		return nil, fmt.Errorf("checkout controller: order sink is required")
	}

	timeout := deps.ShippingTimeout
	if timeout <= 0 {
		timeout = defaultShippingTimeout
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		evaluator:       pricing.NewEvaluator(),
		registrar:       deps.Registrar,
		coupons:         deps.Coupons,
		settings:        deps.Settings,
		sink:            deps.Sink,
		validate:        validator.New(),
		logger:          logger,
		clock:           clock,
		shippingTimeout: timeout,
		inflight:        make(map[string]struct{}),
	}, nil
}

// ContactStepInput is the first step's payload. Account creation is opt-in;
// when requested, registration must succeed before the step advances.
type ContactStepInput struct {
	Contact       models.ContactInfo
	CreateAccount bool
	FirstName     string
	LastName      string
	Password      string
}

// SubmitContact validates the contact step and advances to the address step.
func (c *Controller) SubmitContact(ctx context.Context, s *Session, input ContactStepInput) (err error) {
	defer c.recoverTransition(ctx, "contact", &err)

	if s.Completed {
		return ErrSessionCompleted
	}
	if err := c.validateStruct(input.Contact); err != nil {
		return err
	}

	if input.CreateAccount && s.GuestUserID == "" {
		if c.registrar == nil {
			return fmt.Errorf("account creation is not available right now")
		}
		release, acquired := c.acquire(s.ID, "registration")
		if !acquired {
			return ErrRequestInFlight
		}
		defer release()

		guest, regErr := c.registrar.Register(ctx, RegistrationInput{
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Email:     input.Contact.Email,
			Phone:     input.Contact.Phone,
			Password:  input.Password,
		})
		if regErr != nil {
			observability.MeterFromContext(ctx).Count("checkout.registration.failed", 1)
			return regErr
		}
		s.GuestUserID = guest.UserID
	}

	s.Contact = input.Contact
	s.Step = StepAddress
	c.countTransition(ctx, StepContact, StepAddress)
	return nil
}

// SubmitAddress validates the address step and advances to delivery.
func (c *Controller) SubmitAddress(ctx context.Context, s *Session, shipping models.Address, billing *models.Address) (err error) {
	defer c.recoverTransition(ctx, "address", &err)

	if s.Completed {
		return ErrSessionCompleted
	}
	if s.Step < StepAddress {
		return ErrStepOrder
	}
	if err := c.validateStruct(shipping); err != nil {
		return err
	}
	if billing != nil {
		if err := c.validateStruct(*billing); err != nil {
			return err
		}
	}

	s.Address = shipping
	s.BillingAddress = billing
	s.Step = StepDelivery
	c.countTransition(ctx, StepAddress, StepDelivery)
	return nil
}

// ShippingOptions resolves the method catalog and a quote per method for the
// session's line items. A transport failure or a fetch exceeding the timeout
// budget is reported as ErrShippingUnavailable, which is retryable and
// distinct from "no method has usable data for these items" (all options
// returned unavailable).
func (c *Controller) ShippingOptions(ctx context.Context, s *Session) ([]MethodOption, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.shippingTimeout)
	defer cancel()

	infos, err := c.settings.ShippingMethods(fetchCtx)
	if err != nil {
		logging.FromContext(ctx, c.logger).Warn("shipping method catalog fetch failed", "error", err, "session_id", s.ID)
		observability.MeterFromContext(ctx).Count("checkout.shipping.fetch_failed", 1)
		return nil, fmt.Errorf("%w: %v", ErrShippingUnavailable, err)
	}

	options := make([]MethodOption, 0, len(infos))
	for _, info := range infos {
		options = append(options, MethodOption{
			Info:  info,
			Quote: c.evaluator.Evaluate(info.ID, s.Items),
		})
	}
	return options, nil
}

// SelectMethod records the customer's shipping choice. Selecting a method
// clears a previously applied free-shipping coupon: the override is tied to
// the method it was applied against, and keeping it across a re-evaluated
// method would combine free shipping with a paid quote.
func (c *Controller) SelectMethod(ctx context.Context, s *Session, method pricing.Method) (err error) {
	defer c.recoverTransition(ctx, "select_method", &err)

	if s.Completed {
		return ErrSessionCompleted
	}
	if s.Step < StepDelivery {
		return ErrStepOrder
	}
	if !method.Valid() {
		return fmt.Errorf("unknown shipping method %q", method)
	}

	quote := c.evaluator.Evaluate(method, s.Items)
	if !quote.IsAvailable {
		return ErrMethodUnavailable
	}

	if s.Method != method && s.Coupon != nil && s.Coupon.FreeShipping {
		s.Coupon = nil
		observability.MeterFromContext(ctx).Count("checkout.coupon.cleared_on_method_change", 1)
	}
	s.Method = method
	return nil
}

// ConfirmDelivery gates Delivery -> Review: a method must be selected and
// still available for the current line items. Availability is checked again
// here because the catalog may have changed since the options were listed.
func (c *Controller) ConfirmDelivery(ctx context.Context, s *Session) (err error) {
	defer c.recoverTransition(ctx, "delivery", &err)

	if s.Completed {
		return ErrSessionCompleted
	}
	if s.Step < StepDelivery {
		return ErrStepOrder
	}
	if s.Method == "" {
		return ErrNoMethodSelected
	}
	if quote := c.evaluator.Evaluate(s.Method, s.Items); !quote.IsAvailable {
		return ErrMethodUnavailable
	}

	s.Step = StepReview
	c.countTransition(ctx, StepDelivery, StepReview)
	return nil
}

// Back moves to a strictly earlier step. Breadcrumb navigation forward is
// rejected; the only way forward is through the step guards.
func (c *Controller) Back(s *Session, to Step) error {
	if s.Completed {
		return ErrSessionCompleted
	}
	if to < StepContact || to > StepReview {
		return fmt.Errorf("unknown step %d", int(to))
	}
	if to >= s.Step {
		return ErrBackwardOnly
	}
	s.Step = to
	return nil
}

// ApplyCoupon validates code and attaches the result to the session. Only
// one validation may be in flight per session, and a response that comes
// back after a newer request started is discarded.
func (c *Controller) ApplyCoupon(ctx context.Context, s *Session, code string) (*pricing.CouponResult, error) {
	if s.Completed {
		return nil, ErrSessionCompleted
	}

	release, acquired := c.acquire(s.ID, "coupon")
	if !acquired {
		return nil, ErrRequestInFlight
	}
	defer release()

	attempt := s.beginCouponAttempt()
	result, err := pricing.ApplyCoupon(ctx, c.coupons, code, s.Subtotal())
	if !s.couponAttemptCurrent(attempt) {
		return nil, ErrSuperseded
	}
	if err != nil {
		observability.MeterFromContext(ctx).Count("checkout.coupon.rejected", 1)
		return nil, err
	}

	s.Coupon = result
	observability.MeterFromContext(ctx).Count("checkout.coupon.applied", 1, sentry.WithAttributes(
		attribute.String("discount_type", string(result.Coupon.DiscountType)),
	))
	return result, nil
}

// RemoveCoupon drops the active coupon, restoring the evaluator's shipping
// cost on the next summary.
func (c *Controller) RemoveCoupon(s *Session) {
	s.beginCouponAttempt()
	s.Coupon = nil
}

// Summary computes the current pricing breakdown. It is safe to call on any
// step; components that are not settled yet contribute zero.
func (c *Controller) Summary(ctx context.Context, s *Session) (PriceSummary, error) {
	subtotal := s.Subtotal()

	shippingCost := decimal.Zero
	if s.Method != "" {
		if quote := c.evaluator.Evaluate(s.Method, s.Items); quote.IsAvailable {
			shippingCost = quote.UnitPriceTotal
		}
	}

	discount := decimal.Zero
	couponCode := ""
	if s.Coupon != nil {
		discount = s.Coupon.Discount
		couponCode = s.Coupon.Coupon.Code
		if s.Coupon.FreeShipping {
			shippingCost = decimal.Zero
		}
	}

	taxCfg, err := c.settings.TaxConfig(ctx)
	if err != nil {
		return PriceSummary{}, fmt.Errorf("failed to load tax configuration: %w", err)
	}
	taxRate := pricing.ResolveTaxRate(s.Address.Country, taxCfg)

	totals := pricing.Aggregate(subtotal, shippingCost, taxRate, discount)
	return PriceSummary{
		Subtotal:     subtotal,
		ShippingCost: shippingCost,
		TaxRate:      taxRate,
		Tax:          totals.Tax,
		Discount:     discount,
		Total:        totals.Total,
		Method:       s.Method,
		CouponCode:   couponCode,
	}, nil
}

// Submit is the terminal transition out of the review step: it builds the
// immutable order draft, hands it to the order sink, and closes the session.
func (c *Controller) Submit(ctx context.Context, s *Session) (ack *SubmitAck, err error) {
	defer c.recoverTransition(ctx, "submit", &err)

	if s.Completed {
		return nil, ErrSessionCompleted
	}
	if s.Step < StepReview {
		return nil, ErrStepOrder
	}
	if len(s.Items) == 0 {
		return nil, ErrNoLineItems
	}

	release, acquired := c.acquire(s.ID, "submit")
	if !acquired {
		return nil, ErrRequestInFlight
	}
	defer release()

	summary, err := c.Summary(ctx, s)
	if err != nil {
		return nil, err
	}

	billing := s.Address
	if s.BillingAddress != nil {
		billing = *s.BillingAddress
	}

	draft, err := pricing.BuildDraft(pricing.DraftInput{
		UserID:          s.GuestUserID,
		Items:           s.Items,
		Method:          s.Method,
		ShippingCost:    summary.ShippingCost,
		TaxRate:         summary.TaxRate,
		Discount:        summary.Discount,
		CouponCode:      summary.CouponCode,
		Contact:         s.Contact,
		ShippingAddress: s.Address,
		BillingAddress:  billing,
	}, c.clock())
	if err != nil {
		return nil, err
	}

	ack, err = c.sink.SubmitDraft(ctx, draft)
	if err != nil {
		observability.MeterFromContext(ctx).Count("checkout.submit.failed", 1)
		return nil, err
	}

	if s.Coupon != nil {
		if usageErr := c.coupons.RecordUsage(ctx, s.Coupon.Coupon.ID); usageErr != nil {
			logging.FromContext(ctx, c.logger).Warn("failed to record coupon usage",
				"error", usageErr, "coupon_code", s.Coupon.Coupon.Code, "order_number", draft.OrderNumber)
		}
	}

	s.Completed = true
	observability.MeterFromContext(ctx).Count("checkout.submitted", 1, sentry.WithAttributes(
		attribute.String("shipping_method", string(s.Method)),
	))
	return ack, nil
}

func (c *Controller) validateStruct(v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Field())
		}
		return &ValidationError{Fields: fields}
	}
	return err
}

// acquire registers an in-flight action for a session and concern; the
// second submission of the same action is rejected until release runs.
func (c *Controller) acquire(sessionID, concern string) (func(), bool) {
	key := sessionID + ":" + concern
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[key]; busy {
		return nil, false
	}
	c.inflight[key] = struct{}{}
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.inflight, key)
	}, true
}

// recoverTransition converts an unexpected panic during a transition into a
// generic retryable error instead of crashing the wizard.
func (c *Controller) recoverTransition(ctx context.Context, name string, err *error) {
	if r := recover(); r != nil {
		logging.FromContext(ctx, c.logger).Error("panic during checkout transition",
			"transition", name, "panic", fmt.Sprintf("%v", r))
		*err = ErrInternal
	}
}

func (c *Controller) countTransition(ctx context.Context, from, to Step) {
	observability.MeterFromContext(ctx).Count("checkout.step.advanced", 1, sentry.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}
