package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tidecartapp/tidecart/internal/cache"
	"github.com/tidecartapp/tidecart/internal/catalog"
	"github.com/tidecartapp/tidecart/internal/checkout"
	"github.com/tidecartapp/tidecart/internal/config"
	"github.com/tidecartapp/tidecart/internal/logging"
	"github.com/tidecartapp/tidecart/internal/pricing"
	"github.com/tidecartapp/tidecart/internal/services"
	"github.com/tidecartapp/tidecart/internal/session"
)

const (
	maxWebhookBodyBytes = 1 << 20 // 1 MB
	maxRequestBodyBytes = 64 << 10
)

// Handlers provides the HTTP endpoints for the checkout API.
type Handlers struct {
	config         *config.Config
	db             *pgxpool.Pool
	storefront     *catalog.StorefrontConfig
	checkout       *checkout.Controller
	orders         *services.OrderService
	registration   *services.RegistrationService
	sessionManager *session.Manager
	cacheProvider  cache.Provider
	logger         *slog.Logger
}

type Dependencies struct {
	Config         *config.Config
	DB             *pgxpool.Pool
	Storefront     *catalog.StorefrontConfig
	Checkout       *checkout.Controller
	Orders         *services.OrderService
	Registration   *services.RegistrationService
	SessionManager *session.Manager
	CacheProvider  cache.Provider
	Logger         *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.Storefront == nil {
		return nil, fmt.Errorf("handlers dependencies: storefront is required")
	}
	if deps.Checkout == nil {
		return nil, fmt.Errorf("handlers dependencies: checkout controller is required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("handlers dependencies: order service is required")
	}
	if deps.Registration == nil {
		return nil, fmt.Errorf("handlers dependencies: registration service is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}

	return &Handlers{
		config:         deps.Config,
		db:             deps.DB,
		storefront:     deps.Storefront,
		checkout:       deps.Checkout,
		orders:         deps.Orders,
		registration:   deps.Registration,
		sessionManager: deps.SessionManager,
		cacheProvider:  deps.CacheProvider,
		logger:         logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.respondJSON(ctx, w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// SessionMiddleware adds the checkout session to the request context.
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return h.sessionManager.Middleware(next)
}

// RequireSession rejects requests without an active checkout session.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return h.sessionManager.RequireSession(next)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.loggerFromContext(ctx).Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads the request body into dst, rejecting unknown fields and
// oversized payloads.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// respondError maps the checkout and pricing error taxonomy onto HTTP status
// codes. Validation failures carry the offending fields or the customer
// facing reason; anything unrecognized becomes a 500 with a generic message.
func (h *Handlers) respondError(ctx context.Context, w http.ResponseWriter, err error) {
	var stepValidation *checkout.ValidationError
	if errors.As(err, &stepValidation) {
		h.respondJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Error:  stepValidation.Error(),
			Fields: stepValidation.Fields,
		})
		return
	}

	var couponValidation *pricing.ValidationError
	if errors.As(err, &couponValidation) {
		h.respondJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Error: couponValidation.Reason})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, checkout.ErrStepOrder),
		errors.Is(err, checkout.ErrBackwardOnly),
		errors.Is(err, checkout.ErrNoMethodSelected),
		errors.Is(err, checkout.ErrMethodUnavailable),
		errors.Is(err, checkout.ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrRequestInFlight):
		status = http.StatusTooManyRequests
	case errors.Is(err, checkout.ErrShippingUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, checkout.ErrSessionCompleted):
		status = http.StatusGone
	case errors.Is(err, checkout.ErrNoLineItems):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrEmailTaken):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.loggerFromContext(ctx).Error("request failed", "error", err)
		h.respondJSON(ctx, w, status, errorResponse{Error: checkout.ErrInternal.Error()})
		return
	}

	h.respondJSON(ctx, w, status, errorResponse{Error: err.Error()})
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}
