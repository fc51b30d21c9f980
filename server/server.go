package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tidecartapp/tidecart/internal/config"
	"github.com/tidecartapp/tidecart/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// Webhooks sit outside the same-origin guard; Stripe calls carry
	// neither an Origin nor a Referer and authenticate by signature.
	r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods("POST").Name("webhooks.stripe")

	r.HandleFunc("/api/auth/login", h.Login).Methods("POST").Name("auth.login")

	// Starting a checkout has no session yet, so it stays outside the
	// session-guarded subrouter.
	r.Handle("/api/checkout",
		h.RequireSameOrigin(http.HandlerFunc(h.CreateCheckout)),
	).Methods("POST").Name("checkout.create")

	api := r.PathPrefix("/api/checkout").Subrouter()
	api.Use(h.SessionMiddleware)
	api.Use(h.MetricsContext)
	api.Use(h.RequireSameOrigin)
	api.Use(h.RequireSession)
	api.HandleFunc("", h.GetCheckout).Methods("GET").Name("checkout.get")
	api.HandleFunc("/contact", h.SubmitContact).Methods("POST").Name("checkout.contact")
	api.HandleFunc("/address", h.SubmitAddress).Methods("POST").Name("checkout.address")
	api.HandleFunc("/shipping-options", h.ShippingOptions).Methods("GET").Name("checkout.shipping_options")
	api.HandleFunc("/shipping-method", h.SelectMethod).Methods("POST").Name("checkout.shipping_method")
	api.HandleFunc("/delivery", h.ConfirmDelivery).Methods("POST").Name("checkout.delivery")
	api.HandleFunc("/coupon", h.ApplyCoupon).Methods("POST").Name("checkout.coupon.apply")
	api.HandleFunc("/coupon", h.RemoveCoupon).Methods("DELETE").Name("checkout.coupon.remove")
	api.HandleFunc("/back", h.Back).Methods("POST").Name("checkout.back")
	api.HandleFunc("/summary", h.Summary).Methods("GET").Name("checkout.summary")
	api.HandleFunc("/submit", h.Submit).Methods("POST").Name("checkout.submit")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
