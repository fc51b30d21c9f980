// Package email sends transactional order mail (confirmation, fulfillment)
// through a configurable delivery provider.
package email

import (
	"context"
	"fmt"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
	ValidateAPIKey(ctx context.Context) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
	Domain   string // For Mailgun
}

func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "postmark":
		return NewPostmarkProvider(config.APIKey, config.From), nil
	case "mailgun":
		return NewMailgunProvider(config.APIKey, config.Domain, config.From), nil
	case "resend":
		return NewResendProvider(config.APIKey, config.From), nil
	case "", "none":
		return noopProvider{}, nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'postmark', 'mailgun', or 'resend'")
	}
}

// noopProvider is used when no email provider is configured, such as in
// development. Sends succeed silently.
type noopProvider struct{}

func (noopProvider) SendEmail(context.Context, *Email) error { return nil }

func (noopProvider) ValidateAPIKey(context.Context) error { return nil }
