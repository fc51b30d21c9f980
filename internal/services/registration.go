package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tidecartapp/tidecart/internal/auth"
	"github.com/tidecartapp/tidecart/internal/checkout"
	"github.com/tidecartapp/tidecart/internal/db"
	"github.com/tidecartapp/tidecart/internal/logging"
	"github.com/tidecartapp/tidecart/internal/models"
)

var ErrEmailTaken = errors.New("an account with this email already exists")

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// RegistrationService creates customer accounts for guests who opt in during
// the contact step. Implements checkout.GuestRegistrar.
type RegistrationService struct {
	users  userStore
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

func NewRegistrationService(users userStore, tokens *auth.TokenIssuer, logger *slog.Logger) (*RegistrationService, error) {
	if users == nil {
		return nil, fmt.Errorf("registration service user store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("registration service token issuer is required")
	}

	return &RegistrationService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}, nil
}

func (s *RegistrationService) Register(ctx context.Context, input checkout.RegistrationInput) (*checkout.RegisteredGuest, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		// The account exists; a token failure should not roll checkout back.
		logging.FromContext(ctx, s.logger).Warn("failed to issue token for new account", "error", err, "user_id", user.ID)
		token = ""
	}

	return &checkout.RegisteredGuest{
		UserID: user.ID.String(),
		Token:  token,
	}, nil
}

// Authenticate verifies an email/password pair and issues a fresh token.
func (s *RegistrationService) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, "", fmt.Errorf("invalid email or password")
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return user, token, nil
}
