package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer, err := NewTokenIssuer("test-secret-key", "tidecart", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error: %v", err)
	}

	userID := uuid.New()
	token, err := issuer.Issue(userID, "jo@example.com")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if got != userID {
		t.Fatalf("Verify() = %s, want %s", got, userID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	issuerA, _ := NewTokenIssuer("secret-a", "tidecart", time.Hour)
	issuerB, _ := NewTokenIssuer("secret-b", "tidecart", time.Hour)

	token, err := issuerA.Issue(uuid.New(), "jo@example.com")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	if _, err := issuerB.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	issuer, _ := NewTokenIssuer("test-secret-key", "tidecart", time.Nanosecond)
	token, err := issuer.Issue(uuid.New(), "jo@example.com")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenIssuer("", "tidecart", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("NewTokenIssuer() error = %v, want ErrMissingSecret", err)
	}
}
