package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tidecartapp/tidecart/internal/auth"
	"github.com/tidecartapp/tidecart/internal/checkout"
	"github.com/tidecartapp/tidecart/internal/db"
	"github.com/tidecartapp/tidecart/internal/models"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	if f.byEmail == nil {
		f.byEmail = make(map[string]*models.User)
	}
	if _, exists := f.byEmail[user.Email]; exists {
		return db.ErrEmailTaken
	}
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	return user, nil
}

func newRegistrationService(t *testing.T) (*RegistrationService, *fakeUserStore) {
	t.Helper()

	store := &fakeUserStore{}
	tokens, err := auth.NewTokenIssuer("test-secret-key", "tidecart", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error: %v", err)
	}
	service, err := NewRegistrationService(store, tokens, nil)
	if err != nil {
		t.Fatalf("NewRegistrationService() error: %v", err)
	}
	return service, store
}

func TestRegisterCreatesUserWithHashedPassword(t *testing.T) {
	t.Parallel()

	service, store := newRegistrationService(t)

	guest, err := service.Register(context.Background(), checkout.RegistrationInput{
		FirstName: "Jo",
		LastName:  "Ade",
		Email:     "  Jo@Example.com ",
		Phone:     "+2348012345678",
		Password:  "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if guest.UserID == "" || guest.Token == "" {
		t.Fatalf("guest = %+v, want user id and token", guest)
	}

	user := store.byEmail["jo@example.com"]
	if user == nil {
		t.Fatal("email was not normalized to lowercase")
	}
	if user.PasswordHash == "hunter2hunter2" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2hunter2")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	service, _ := newRegistrationService(t)
	input := checkout.RegistrationInput{
		FirstName: "Jo", LastName: "Ade", Email: "jo@example.com",
		Phone: "+234801", Password: "hunter2hunter2",
	}

	if _, err := service.Register(context.Background(), input); err != nil {
		t.Fatalf("first Register() error: %v", err)
	}
	if _, err := service.Register(context.Background(), input); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("second Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	service, _ := newRegistrationService(t)
	_, err := service.Register(context.Background(), checkout.RegistrationInput{
		FirstName: "Jo", LastName: "Ade", Email: "jo@example.com",
		Phone: "+234801", Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	user, token, err := service.Authenticate(context.Background(), "jo@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if user == nil || token == "" {
		t.Fatal("expected user and token")
	}

	if _, _, err := service.Authenticate(context.Background(), "jo@example.com", "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
	if _, _, err := service.Authenticate(context.Background(), "nobody@example.com", "hunter2hunter2"); err == nil {
		t.Fatal("expected error for unknown email")
	}
}
