// Package email delivers transactional mail for the passenger data
// portal. Two delivery backends share the same HTML templates: the
// Brevo HTTP API and plain SMTP via go-mail.
package email

import (
	"context"
	"errors"

	"tripforms_backend/platform/config"
)

// ErrNotConfigured is returned when no delivery backend is configured.
// Callers that can proceed without email (manual link flow) check for
// it to distinguish "no mailer" from a real delivery failure.
var ErrNotConfigured = errors.New("email sender not configured")

// DispatchData carries the template values for a capture dispatch email.
type DispatchData struct {
	ClientName   string
	ProposalID   string
	GameDetails  string
	FormURL      string
	Deadline     string
	LoginEmail   string
	TempPassword string
}

// Sender is the outbound email port used by the domain modules.
type Sender interface {
	SendDispatchEmail(ctx context.Context, toEmail string, data DispatchData) error
	SendPasswordResetEmail(ctx context.Context, toEmail, clientName, tempPassword, loginURL string) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NotConfiguredSender is used when email delivery is disabled. Every
// send returns ErrNotConfigured.
type NotConfiguredSender struct{}

func (NotConfiguredSender) SendDispatchEmail(ctx context.Context, toEmail string, data DispatchData) error {
	return ErrNotConfigured
}

func (NotConfiguredSender) SendPasswordResetEmail(ctx context.Context, toEmail, clientName, tempPassword, loginURL string) error {
	return ErrNotConfigured
}

func (NotConfiguredSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return ErrNotConfigured
}

// NewSender picks the delivery backend from configuration.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NotConfiguredSender{}, nil
	}

	switch cfg.GetEmailProvider() {
	case "smtp":
		return NewSMTPSender(
			cfg.GetSMTPHost(),
			cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(),
			cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(),
			cfg.GetEmailFromName(),
		), nil
	default:
		return NewBrevoSender(cfg), nil
	}
}
