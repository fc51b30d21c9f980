package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/tidecartapp/tidecart/internal/cache"
	"github.com/tidecartapp/tidecart/internal/payments"
)

// stripeWebhookIdempotencyTTL is how long webhook event IDs are kept for deduplication
const stripeWebhookIdempotencyTTL = 24 * time.Hour

// StripeWebhook receives payment events. Signature validation happens before
// anything else; processed event IDs are cached so Stripe's redelivery
// retries are acknowledged without reprocessing.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	event, err := payments.ReadWebhookEvent(r, h.config.StripeWebhookSecret)
	if err != nil {
		logger.Error("failed to read Stripe webhook payload", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if event == nil || event.ID == "" {
		logger.Error("missing Stripe event ID")
		http.Error(w, "Missing event ID", http.StatusBadRequest)
		return
	}

	cacheKey := cache.WebhookKey("stripe", event.ID)
	if _, err := h.cacheProvider.Get(ctx, cacheKey); err == nil {
		logger.Info("webhook already processed", "event_id", event.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	if processErr := h.processStripeEvent(r, event); processErr != nil {
		logger.Error("failed to process Stripe webhook", "error", processErr, "type", event.Type)
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	if err := h.cacheProvider.Set(ctx, cacheKey, "processed", stripeWebhookIdempotencyTTL); err != nil {
		logger.Error("failed to mark webhook as processed in cache", "error", err)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) processStripeEvent(r *http.Request, event *stripe.Event) error {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	switch event.Type {
	case "checkout.session.completed":
		var checkoutSession stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
			return err
		}
		return h.orders.HandlePaymentCompleted(ctx, checkoutSession.ID)
	default:
		// Unhandled event types are acknowledged so Stripe stops retrying.
		logger.Debug("ignoring Stripe event", "type", event.Type)
		return nil
	}
}
