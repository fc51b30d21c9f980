package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidecartapp/tidecart/internal/checkout"
	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/pricing"
	"github.com/tidecartapp/tidecart/internal/session"
)

type cartItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type createCheckoutRequest struct {
	Items []cartItem `json:"items"`
}

type checkoutState struct {
	SessionID string                 `json:"sessionId"`
	Step      string                 `json:"step"`
	Items     []models.LineItem      `json:"items"`
	Summary   *checkout.PriceSummary `json:"summary,omitempty"`
}

// CreateCheckout starts a checkout session over the cart's line items. The
// items are resolved against the storefront catalog; quantities are fixed for
// the life of the session, so an edited cart starts a new checkout.
func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req createCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	items, err := h.resolveCartItems(req.Items)
	if err != nil {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sess, err := checkout.NewSession(items)
	if err != nil {
		h.respondError(ctx, w, err)
		return
	}

	if err := h.sessionManager.CreateSession(ctx, w, sess); err != nil {
		logger.Error("failed to create checkout session", "error", err)
		h.respondError(ctx, w, err)
		return
	}

	logger.Info("checkout started", "session_id", sess.ID, "items", len(items))
	h.respondJSON(ctx, w, http.StatusCreated, h.stateFor(r, sess))
}

// GetCheckout returns the current wizard position and pricing breakdown.
func (h *Handlers) GetCheckout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	h.respondJSON(r.Context(), w, http.StatusOK, h.stateFor(r, sess))
}

type contactRequest struct {
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	CreateAccount bool   `json:"createAccount"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Password      string `json:"password"`
}

func (h *Handlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	err := h.checkout.SubmitContact(ctx, sess, checkout.ContactStepInput{
		Contact:       models.ContactInfo{Email: req.Email, Phone: req.Phone},
		CreateAccount: req.CreateAccount,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Password:      req.Password,
	})
	if err != nil {
		h.respondError(ctx, w, err)
		return
	}

	h.saveSession(r, sess)
	h.respondJSON(ctx, w, http.StatusOK, h.stateFor(r, sess))
}

type addressRequest struct {
	Shipping models.Address  `json:"shipping"`
	Billing  *models.Address `json:"billing"`
}

func (h *Handlers) SubmitAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	var req addressRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := h.checkout.SubmitAddress(ctx, sess, req.Shipping, req.Billing); err != nil {
		h.respondError(ctx, w, err)
		return
	}

	h.saveSession(r, sess)
	h.respondJSON(ctx, w, http.StatusOK, h.stateFor(r, sess))
}

// ShippingOptions lists every catalog method with its quote for the session's
// line items, including unavailable ones so the UI can render them disabled.
func (h *Handlers) ShippingOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	options, err := h.checkout.ShippingOptions(ctx, sess)
	if err != nil {
		h.respondError(ctx, w, err)
		return
	}

	h.respondJSON(ctx, w, http.StatusOK, map[string]any{"options": options})
}

type selectMethodRequest struct {
	Method string `json:"method"`
}

func (h *Handlers) SelectMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	var req selectMethodRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := h.checkout.SelectMethod(ctx, sess, pricing.Method(req.Method)); err != nil {
		h.respondError(ctx, w, err)
		return
	}

	h.saveSession(r, sess)
	h.respondJSON(ctx, w, http.StatusOK, h.stateFor(r, sess))
}

func (h *Handlers) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	if err := h.checkout.ConfirmDelivery(ctx, sess); err != nil {
		h.respondError(ctx, w, err)
		return
	}

	h.saveSession(r, sess)
	h.respondJSON(ctx, w, http.StatusOK, h.stateFor(r, sess))
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *Handlers) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	var req applyCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := h.checkout.ApplyCoupon(ctx, sess, req.Code)
	if err != nil {
		h.respondError(ctx, w, err)
		return
	}

	h.saveSession(r, sess)
	h.respondJSON(ctx, w, http.StatusOK, map[string]any{
		"coupon": result,
		"state":  h.stateFor(r, sess),
	})
}

func (h *Handlers) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	h.checkout.RemoveCoupon(sess)

	h.saveSession(r, sess)
	h.respondJSON(ctx, w, http.StatusOK, h.stateFor(r, sess))
}

type backRequest struct {
	Step string `json:"step"`
}

func (h *Handlers) Back(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	var req backRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	step, err := stepFromName(req.Step)
	if err != nil {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := h.checkout.Back(sess, step); err != nil {
		h.respondError(ctx, w, err)
		return
	}

	h.saveSession(r, sess)
	h.respondJSON(ctx, w, http.StatusOK, h.stateFor(r, sess))
}

func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	summary, err := h.checkout.Summary(ctx, sess)
	if err != nil {
		h.respondError(ctx, w, err)
		return
	}

	h.respondJSON(ctx, w, http.StatusOK, summary)
}

// Submit finalizes the checkout. On success the session cookie is cleared;
// the acknowledgement carries the order number and, when a payment session
// could be created, the URL to complete payment at.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	ack, err := h.checkout.Submit(ctx, sess)
	if err != nil {
		h.respondError(ctx, w, err)
		return
	}

	if err := h.sessionManager.DestroySession(ctx, w, r); err != nil {
		h.loggerFromContext(ctx).Warn("failed to destroy checkout session", "error", err, "session_id", sess.ID)
	}

	h.respondJSON(ctx, w, http.StatusOK, ack)
}

func (h *Handlers) resolveCartItems(items []cartItem) ([]models.LineItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	resolved := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			return nil, fmt.Errorf("cart item is missing a sku")
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("quantity for %s must be at least 1", sku)
		}

		product, ok := h.storefront.Product(sku)
		if !ok || !product.Active {
			return nil, fmt.Errorf("unknown product %q", sku)
		}
		resolved = append(resolved, product.LineItem(item.Quantity))
	}
	return resolved, nil
}

// saveSession persists session mutations. The memory store shares the
// pointer, so this only matters for external stores; a write failure is
// logged rather than surfaced because the transition itself succeeded.
func (h *Handlers) saveSession(r *http.Request, sess *checkout.Session) {
	if err := h.sessionManager.UpdateSession(r.Context(), r, sess); err != nil {
		h.loggerFromContext(r.Context()).Warn("failed to persist checkout session", "error", err, "session_id", sess.ID)
	}
}

func (h *Handlers) stateFor(r *http.Request, sess *checkout.Session) checkoutState {
	state := checkoutState{
		SessionID: sess.ID,
		Step:      sess.Step.String(),
		Items:     sess.Items,
	}

	summary, err := h.checkout.Summary(r.Context(), sess)
	if err == nil {
		state.Summary = &summary
	} else {
		h.loggerFromContext(r.Context()).Debug("summary unavailable", "error", err, "session_id", sess.ID)
	}
	return state
}

func stepFromName(name string) (checkout.Step, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "contact":
		return checkout.StepContact, nil
	case "address":
		return checkout.StepAddress, nil
	case "delivery":
		return checkout.StepDelivery, nil
	case "review":
		return checkout.StepReview, nil
	default:
		return 0, fmt.Errorf("unknown checkout step %q", name)
	}
}
