package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeRegistrar struct {
	guest *RegisteredGuest
	err   error
	calls int
}

func (f *fakeRegistrar) Register(_ context.Context, _ RegistrationInput) (*RegisteredGuest, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.guest, nil
}

type fakeCoupons struct {
	coupon   *models.Coupon
	err      error
	recorded []uuid.UUID
}

func (f *fakeCoupons) Validate(_ context.Context, _ string, _ decimal.Decimal) (*models.Coupon, error) {
	return f.coupon, f.err
}

func (f *fakeCoupons) RecordUsage(_ context.Context, id uuid.UUID) error {
	f.recorded = append(f.recorded, id)
	return nil
}

type fakeSettings struct {
	taxCfg     models.TaxConfig
	taxErr     error
	methods    []pricing.MethodInfo
	methodsErr error
	block      bool
}

func (f *fakeSettings) TaxConfig(_ context.Context) (models.TaxConfig, error) {
	return f.taxCfg, f.taxErr
}

func (f *fakeSettings) ShippingMethods(ctx context.Context) ([]pricing.MethodInfo, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.methodsErr != nil {
		return nil, f.methodsErr
	}
	return f.methods, nil
}

type fakeSink struct {
	draft *models.OrderDraft
	err   error
}

func (f *fakeSink) SubmitDraft(_ context.Context, draft *models.OrderDraft) (*SubmitAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.draft = draft
	return &SubmitAck{OrderNumber: draft.OrderNumber}, nil
}

func defaultSettings() *fakeSettings {
	return &fakeSettings{
		taxCfg: models.TaxConfig{
			DefaultRate: dec("0.15"),
			Countries: map[string]models.CountryTaxRate{
				"NG": {CountryCode: "NG", Rate: dec("0.075"), Active: true},
			},
		},
		methods: []pricing.MethodInfo{pricing.MethodAir.Info(), pricing.MethodSea.Info()},
	}
}

func testItems() []models.LineItem {
	return []models.LineItem{
		{
			ID:                  "hoodie",
			Name:                "Hoodie",
			UnitPrice:           dec("50"),
			Quantity:            2,
			AirShippingPrice:    10,
			AirShippingDuration: 5,
			SeaShippingPrice:    21,
			SeaShippingDuration: 30,
		},
	}
}

type controllerFixture struct {
	controller *Controller
	registrar  *fakeRegistrar
	coupons    *fakeCoupons
	settings   *fakeSettings
	sink       *fakeSink
}

func newFixture(t *testing.T, mutate func(*Dependencies)) *controllerFixture {
	t.Helper()

	f := &controllerFixture{
		registrar: &fakeRegistrar{guest: &RegisteredGuest{UserID: "user-1", Token: "tok"}},
		coupons:   &fakeCoupons{},
		settings:  defaultSettings(),
		sink:      &fakeSink{},
	}
	deps := Dependencies{
		Registrar: f.registrar,
		Coupons:   f.coupons,
		Settings:  f.settings,
		Sink:      f.sink,
	}
	if mutate != nil {
		mutate(&deps)
	}
	controller, err := NewController(deps)
	if err != nil {
		t.Fatalf("NewController() error: %v", err)
	}
	f.controller = controller
	return f
}

func advanceToDelivery(t *testing.T, f *controllerFixture, s *Session) {
	t.Helper()
	ctx := context.Background()

	err := f.controller.SubmitContact(ctx, s, ContactStepInput{
		Contact: models.ContactInfo{Email: "jo@example.com", Phone: "+2348012345678"},
	})
	if err != nil {
		t.Fatalf("SubmitContact() error: %v", err)
	}
	err = f.controller.SubmitAddress(ctx, s, models.Address{
		FirstName: "Jo", LastName: "Ade", Line1: "1 Marina Rd",
		City: "Lagos", State: "LA", Zip: "100001", Country: "NG",
	}, nil)
	if err != nil {
		t.Fatalf("SubmitAddress() error: %v", err)
	}
}

func TestStepGuardsBlockIncompleteSteps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	s, err := NewSession(testItems())
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}

	var validationErr *ValidationError
	err = f.controller.SubmitContact(ctx, s, ContactStepInput{Contact: models.ContactInfo{Email: "not-an-email"}})
	if !errors.As(err, &validationErr) {
		t.Fatalf("SubmitContact(invalid) error = %v, want ValidationError", err)
	}
	if s.Step != StepContact {
		t.Fatalf("step advanced past failed validation: %s", s.Step)
	}

	if err := f.controller.SubmitAddress(ctx, s, models.Address{}, nil); !errors.Is(err, ErrStepOrder) {
		t.Fatalf("SubmitAddress before contact = %v, want ErrStepOrder", err)
	}
	if err := f.controller.SelectMethod(ctx, s, pricing.MethodAir); !errors.Is(err, ErrStepOrder) {
		t.Fatalf("SelectMethod before address = %v, want ErrStepOrder", err)
	}
	if _, err := f.controller.Submit(ctx, s); !errors.Is(err, ErrStepOrder) {
		t.Fatalf("Submit before review = %v, want ErrStepOrder", err)
	}
}

func TestBackwardNavigation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	s, _ := NewSession(testItems())
	advanceToDelivery(t, f, s)

	if s.Step != StepDelivery {
		t.Fatalf("step = %s, want delivery", s.Step)
	}
	if err := f.controller.Back(s, StepReview); !errors.Is(err, ErrBackwardOnly) {
		t.Fatalf("forward jump = %v, want ErrBackwardOnly", err)
	}
	if err := f.controller.Back(s, StepDelivery); !errors.Is(err, ErrBackwardOnly) {
		t.Fatalf("jump to current step = %v, want ErrBackwardOnly", err)
	}
	if err := f.controller.Back(s, StepContact); err != nil {
		t.Fatalf("Back(contact) error: %v", err)
	}
	if s.Step != StepContact {
		t.Fatalf("step = %s, want contact", s.Step)
	}
}

func TestRegistrationFailureBlocksContactStep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)
	f.registrar.err = errors.New("email already registered")

	s, _ := NewSession(testItems())
	err := f.controller.SubmitContact(ctx, s, ContactStepInput{
		Contact:       models.ContactInfo{Email: "jo@example.com", Phone: "+234801"},
		CreateAccount: true,
		FirstName:     "Jo",
		LastName:      "Ade",
		Password:      "hunter2hunter2",
	})
	if err == nil || err.Error() != "email already registered" {
		t.Fatalf("SubmitContact() error = %v, want registration error surfaced", err)
	}
	if s.Step != StepContact {
		t.Fatalf("step = %s, want contact (blocked)", s.Step)
	}
}

func TestSelectMethodRejectsUnavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	items := testItems()
	items[0].SeaShippingDuration = nil // sea now has partial data only
	s, _ := NewSession(items)
	advanceToDelivery(t, f, s)

	if err := f.controller.SelectMethod(ctx, s, pricing.MethodSea); !errors.Is(err, ErrMethodUnavailable) {
		t.Fatalf("SelectMethod(sea) = %v, want ErrMethodUnavailable", err)
	}
	if err := f.controller.SelectMethod(ctx, s, pricing.MethodAir); err != nil {
		t.Fatalf("SelectMethod(air) error: %v", err)
	}
}

func TestFreeShippingClearedOnMethodChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)
	f.coupons.coupon = &models.Coupon{
		ID:           uuid.New(),
		Code:         "FREESHIP",
		DiscountType: models.DiscountFixed,
		IsActive:     true,
	}

	s, _ := NewSession(testItems())
	advanceToDelivery(t, f, s)

	if err := f.controller.SelectMethod(ctx, s, pricing.MethodSea); err != nil {
		t.Fatalf("SelectMethod(sea) error: %v", err)
	}

	summary, err := f.controller.Summary(ctx, s)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if !summary.ShippingCost.Equal(dec("42")) {
		t.Fatalf("sea shipping = %s, want 42", summary.ShippingCost)
	}

	if _, err := f.controller.ApplyCoupon(ctx, s, "FREESHIP"); err != nil {
		t.Fatalf("ApplyCoupon() error: %v", err)
	}
	summary, _ = f.controller.Summary(ctx, s)
	if !summary.ShippingCost.IsZero() {
		t.Fatalf("shipping after FREESHIP = %s, want 0", summary.ShippingCost)
	}

	// Switching method clears the free-shipping coupon and restores the
	// evaluator's cost for the new method.
	if err := f.controller.SelectMethod(ctx, s, pricing.MethodAir); err != nil {
		t.Fatalf("SelectMethod(air) error: %v", err)
	}
	if s.Coupon != nil {
		t.Fatal("free-shipping coupon still active after method change")
	}
	summary, _ = f.controller.Summary(ctx, s)
	if !summary.ShippingCost.Equal(dec("20")) {
		t.Fatalf("air shipping = %s, want 20", summary.ShippingCost)
	}
}

func TestSummaryTaxOnPreDiscountSubtotal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)
	f.coupons.coupon = &models.Coupon{
		ID:            uuid.New(),
		Code:          "SAVE10",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: dec("10"),
		IsActive:      true,
	}
	f.settings.taxCfg.DefaultRate = dec("0.15")
	f.settings.taxCfg.Countries = nil

	s, _ := NewSession(testItems()) // subtotal 100
	advanceToDelivery(t, f, s)
	if err := f.controller.SelectMethod(ctx, s, pricing.MethodAir); err != nil {
		t.Fatalf("SelectMethod() error: %v", err)
	}
	if _, err := f.controller.ApplyCoupon(ctx, s, "SAVE10"); err != nil {
		t.Fatalf("ApplyCoupon() error: %v", err)
	}

	summary, err := f.controller.Summary(ctx, s)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if !summary.Discount.Equal(dec("10")) {
		t.Fatalf("Discount = %s, want 10", summary.Discount)
	}
	if !summary.Tax.Equal(dec("15")) {
		t.Fatalf("Tax = %s, want 15 (pre-discount subtotal)", summary.Tax)
	}
	want := dec("100").Add(summary.ShippingCost).Add(dec("15")).Sub(dec("10"))
	if !summary.Total.Equal(want) {
		t.Fatalf("Total = %s, want %s", summary.Total, want)
	}
}

func TestShippingOptionsOfflineAndTimeout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t, nil)
	f.settings.methodsErr = errors.New("connection refused")
	s, _ := NewSession(testItems())
	if _, err := f.controller.ShippingOptions(ctx, s); !errors.Is(err, ErrShippingUnavailable) {
		t.Fatalf("offline error = %v, want ErrShippingUnavailable", err)
	}

	slow := newFixture(t, func(d *Dependencies) {
		d.ShippingTimeout = 20 * time.Millisecond
	})
	slow.settings.block = true
	if _, err := slow.controller.ShippingOptions(ctx, s); !errors.Is(err, ErrShippingUnavailable) {
		t.Fatalf("timeout error = %v, want ErrShippingUnavailable", err)
	}
}

func TestShippingOptionsMarkUnavailableMethods(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	items := testItems()
	items[0].SeaShippingPrice = nil
	items[0].SeaShippingDuration = nil
	s, _ := NewSession(items)

	options, err := f.controller.ShippingOptions(ctx, s)
	if err != nil {
		t.Fatalf("ShippingOptions() error: %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("got %d options, want 2", len(options))
	}
	for _, opt := range options {
		switch opt.Info.ID {
		case pricing.MethodAir:
			if !opt.Quote.IsAvailable {
				t.Fatal("air should be available")
			}
		case pricing.MethodSea:
			if opt.Quote.IsAvailable {
				t.Fatal("sea should be unavailable without data")
			}
		default:
			t.Fatalf("unexpected method %s", opt.Info.ID)
		}
	}
}

func TestSubmitBuildsDraftAndClosesSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)
	couponID := uuid.New()
	f.coupons.coupon = &models.Coupon{
		ID:            couponID,
		Code:          "SAVE10",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: dec("10"),
		IsActive:      true,
	}

	s, _ := NewSession(testItems())
	advanceToDelivery(t, f, s)
	if err := f.controller.SelectMethod(ctx, s, pricing.MethodSea); err != nil {
		t.Fatalf("SelectMethod() error: %v", err)
	}
	if _, err := f.controller.ApplyCoupon(ctx, s, "SAVE10"); err != nil {
		t.Fatalf("ApplyCoupon() error: %v", err)
	}
	if err := f.controller.ConfirmDelivery(ctx, s); err != nil {
		t.Fatalf("ConfirmDelivery() error: %v", err)
	}

	ack, err := f.controller.Submit(ctx, s)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if ack.OrderNumber == "" {
		t.Fatal("ack missing order number")
	}

	draft := f.sink.draft
	if draft == nil {
		t.Fatal("sink did not receive a draft")
	}
	wantTotal := draft.Subtotal.Add(draft.ShippingCost).Add(draft.Tax).Sub(draft.Discount)
	if !draft.Total.Equal(wantTotal) {
		t.Fatalf("draft total invariant violated: %s != %s", draft.Total, wantTotal)
	}
	if draft.ShippingMethodID != "sea" {
		t.Fatalf("draft method = %q, want sea", draft.ShippingMethodID)
	}
	if len(f.coupons.recorded) != 1 || f.coupons.recorded[0] != couponID {
		t.Fatalf("coupon usage recorded = %v, want [%s]", f.coupons.recorded, couponID)
	}

	if !s.Completed {
		t.Fatal("session not marked completed")
	}
	if _, err := f.controller.Submit(ctx, s); !errors.Is(err, ErrSessionCompleted) {
		t.Fatalf("second submit = %v, want ErrSessionCompleted", err)
	}
}

func TestConfirmDeliveryRequiresSelectedAvailableMethod(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)

	s, _ := NewSession(testItems())
	advanceToDelivery(t, f, s)

	if err := f.controller.ConfirmDelivery(ctx, s); !errors.Is(err, ErrNoMethodSelected) {
		t.Fatalf("ConfirmDelivery without method = %v, want ErrNoMethodSelected", err)
	}

	if err := f.controller.SelectMethod(ctx, s, pricing.MethodAir); err != nil {
		t.Fatalf("SelectMethod() error: %v", err)
	}
	// Shipping data degrades between selection and confirmation; the
	// re-check at confirmation blocks the transition.
	s.Items[0].AirShippingPrice = nil
	if err := f.controller.ConfirmDelivery(ctx, s); !errors.Is(err, ErrMethodUnavailable) {
		t.Fatalf("ConfirmDelivery degraded = %v, want ErrMethodUnavailable", err)
	}
}

func TestApplyCouponSurfacesServiceMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)
	f.coupons.err = &pricing.ValidationError{Reason: fmt.Sprintf("minimum purchase of %s required", dec("200"))}

	s, _ := NewSession(testItems())
	_, err := f.controller.ApplyCoupon(ctx, s, "BIGSPEND")
	var validationErr *pricing.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want pricing.ValidationError", err)
	}
	if validationErr.Reason != "minimum purchase of 200 required" {
		t.Fatalf("reason = %q, want service message verbatim", validationErr.Reason)
	}
}
