// Package mail delivers outbound email. Delivery is an external
// collaborator: the auth service hands reset tokens to a Sender and
// never writes them anywhere else, in particular not to logs.
package mail

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

// Sender delivers a password-reset token to an email address.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// AlertSender notifies an operator that a provider crossed its usage
// threshold.
type AlertSender interface {
	SendUsageAlert(ctx context.Context, to, provider string, used, percent float64) error
}

// NoopSender discards all email. Used in development and tests.
type NoopSender struct{}

// SendPasswordReset does nothing.
func (NoopSender) SendPasswordReset(ctx context.Context, to, token string) error {
	return nil
}

// SendUsageAlert does nothing.
func (NoopSender) SendUsageAlert(ctx context.Context, to, provider string, used, percent float64) error {
	return nil
}

// MailgunSender delivers reset emails through the Mailgun API.
type MailgunSender struct {
	mg      mailgun.Mailgun
	from    string
	baseURL string
}

// NewMailgunSender creates a Sender backed by Mailgun. baseURL is the
// public dashboard URL the reset link points at.
func NewMailgunSender(domain, apiKey, from, baseURL string) *MailgunSender {
	return &MailgunSender{
		mg:      mailgun.NewMailgun(domain, apiKey),
		from:    from,
		baseURL: baseURL,
	}
}

// SendPasswordReset emails a single-use reset link.
func (s *MailgunSender) SendPasswordReset(ctx context.Context, to, token string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Open %s/reset-password?token=%s to choose a new password. "+
			"The link expires in one hour. If you did not request this, ignore this email.\n",
		s.baseURL, token,
	)
	message := s.mg.NewMessage(s.from, "Reset your password", body)
	if err := message.AddRecipient(to); err != nil {
		return fmt.Errorf("mailgun recipient: %w", err)
	}
	if _, _, err := s.mg.Send(ctx, message); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}

// SendUsageAlert emails a high-usage notification for one provider.
func (s *MailgunSender) SendUsageAlert(ctx context.Context, to, provider string, used, percent float64) error {
	body := fmt.Sprintf(
		"Usage for %s has reached %.0f (%.0f%% of quota).\n\n"+
			"See %s for details.\n",
		provider, used, percent, s.baseURL,
	)
	message := s.mg.NewMessage(s.from, "High API usage alert: "+provider, body)
	if err := message.AddRecipient(to); err != nil {
		return fmt.Errorf("mailgun recipient: %w", err)
	}
	if _, _, err := s.mg.Send(ctx, message); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}
