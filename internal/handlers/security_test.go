package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidecartapp/tidecart/internal/config"
)

func newSecurityHandlers(cfg *config.Config) *Handlers {
	return &Handlers{
		config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRequireSameOrigin(t *testing.T) {
	t.Parallel()

	h := newSecurityHandlers(&config.Config{BaseURL: "https://shop.example.com"})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	protected := h.RequireSameOrigin(next)

	tests := []struct {
		name       string
		method     string
		origin     string
		referer    string
		wantStatus int
	}{
		{
			name:       "GET passes without origin",
			method:     http.MethodGet,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "POST without origin or referer is blocked",
			method:     http.MethodPost,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "POST with matching origin passes",
			method:     http.MethodPost,
			origin:     "https://shop.example.com",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "POST with matching request host passes",
			method:     http.MethodPost,
			origin:     "http://example.com",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "POST with foreign origin is blocked",
			method:     http.MethodPost,
			origin:     "https://evil.example.net",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "POST with matching referer passes",
			method:     http.MethodPost,
			referer:    "https://shop.example.com/checkout",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "POST with foreign referer is blocked",
			method:     http.MethodPost,
			referer:    "https://evil.example.net/form",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tc.method, "http://example.com/api/checkout/submit", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.referer != "" {
				req.Header.Set("Referer", tc.referer)
			}

			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := newSecurityHandlers(&config.Config{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	h.SecurityHeaders(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestSecureCookiesFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *config.Config
		want bool
	}{
		{name: "nil config", cfg: nil, want: false},
		{name: "https base url", cfg: &config.Config{BaseURL: "https://shop.example.com"}, want: true},
		{name: "http base url", cfg: &config.Config{BaseURL: "http://localhost:8080"}, want: false},
		{name: "tls port without base url", cfg: &config.Config{Port: "443"}, want: true},
		{name: "plain port without base url", cfg: &config.Config{Port: "8080"}, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := SecureCookiesFromConfig(tc.cfg); got != tc.want {
				t.Errorf("SecureCookiesFromConfig() = %v, want %v", got, tc.want)
			}
		})
	}
}
