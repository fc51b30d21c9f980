// Package session persists in-progress checkout attempts between requests.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tidecartapp/tidecart/internal/checkout"
)

const (
	cookieName = "tidecart_checkout"

	// Checkout attempts are short-lived; an abandoned wizard expires and
	// the customer starts over.
	ttl = 2 * time.Hour
)

// Store defines the interface for checkout session storage.
type Store interface {
	Get(ctx context.Context, key string) (*checkout.Session, bool)
	Set(ctx context.Context, key string, s *checkout.Session, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

// Manager binds checkout sessions to a browser via a cookie.
type Manager struct {
	store  Store
	secure bool
}

func NewManager(store Store, secure bool) *Manager {
	return &Manager{
		store:  store,
		secure: secure,
	}
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// CreateSession stores the checkout session and sets the cookie. The
// session's own ID is the storage key, so a customer holds at most one
// active checkout per browser.
func (m *Manager) CreateSession(ctx context.Context, w http.ResponseWriter, s *checkout.Session) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}
	if s == nil {
		return fmt.Errorf("checkout session is required")
	}

	m.store.Set(ctx, s.ID, s, ttl)

	cookie := &http.Cookie{
		Name:     cookieName,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)

	return nil
}

// GetSession retrieves the checkout session bound to the request.
func (m *Manager) GetSession(ctx context.Context, r *http.Request) (*checkout.Session, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil, fmt.Errorf("no checkout session cookie found: %w", err)
	}

	if ctx == nil {
		ctx = r.Context()
	}

	s, ok := m.store.Get(ctx, cookie.Value)
	if !ok {
		return nil, fmt.Errorf("checkout session not found or expired")
	}

	if time.Since(s.CreatedAt) > ttl {
		m.store.Delete(ctx, cookie.Value)
		return nil, fmt.Errorf("checkout session expired")
	}

	return s, nil
}

// UpdateSession writes the mutated session back under its existing key.
func (m *Manager) UpdateSession(ctx context.Context, r *http.Request, s *checkout.Session) error {
	if s == nil {
		return fmt.Errorf("checkout session is required")
	}

	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return fmt.Errorf("no checkout session cookie found: %w", err)
	}

	if ctx == nil {
		ctx = r.Context()
	}

	m.store.Set(ctx, cookie.Value, s, ttl)
	return nil
}

// DestroySession removes the session and clears the cookie. Called after a
// successful submit or when the customer abandons checkout.
func (m *Manager) DestroySession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(cookieName)
	if ctx == nil {
		ctx = r.Context()
	}
	if err == nil {
		m.store.Delete(ctx, cookie.Value)
	}

	clearCookie := &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, clearCookie)

	return nil
}
