// Package session provides HTTP middleware for checkout session handling.
package session

import (
	"context"
	"net/http"

	"github.com/tidecartapp/tidecart/internal/checkout"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const ctxKey contextKey = "checkout_session"

// Middleware adds the checkout session to the request context when the
// request carries a valid session cookie.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.GetSession(r.Context(), r)
		if err == nil {
			ctx := context.WithValue(r.Context(), ctxKey, s)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession rejects requests that do not carry an active checkout
// session. Checkout step endpoints are meaningless without one.
func (m *Manager) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.GetSession(r.Context(), r)
		if err != nil {
			http.Error(w, "no active checkout session", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey, s)
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

// FromContext retrieves the checkout session from the request context.
func FromContext(ctx context.Context) *checkout.Session {
	if ctx == nil {
		return nil
	}
	s, ok := ctx.Value(ctxKey).(*checkout.Session)
	if !ok {
		return nil
	}
	return s
}
