package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/loop-hq/loop-api/config"
)

// Mailer delivers the verification link for a freshly registered account.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, recipient, token string) error
}

func NewMailer(cfg *config.Config) Mailer {
	if cfg.SendGridAPIKey == "" {
		logrus.Warn("SENDGRID_API_KEY not set, verification emails disabled")
		return &noopMailer{}
	}
	return &sendGridMailer{cfg: cfg}
}

type sendGridMailer struct {
	cfg *config.Config
}

func (m *sendGridMailer) SendVerificationEmail(ctx context.Context, recipient, token string) error {
	verifyURL := fmt.Sprintf("%s?token=%s", m.cfg.VerifyBaseURL, url.QueryEscape(token))

	from := mail.NewEmail(m.cfg.EmailFromName, m.cfg.EmailFrom)
	to := mail.NewEmail("", recipient)
	subject := "Verify your email address"
	plainText := fmt.Sprintf("Welcome! Please verify your email address by opening: %s", verifyURL)
	htmlContent := fmt.Sprintf(`Welcome! Please verify your email address by clicking <a href="%s">this link</a>.`, verifyURL)

	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(m.cfg.SendGridAPIKey)

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	logrus.WithField("status", response.StatusCode).Debug("Verification email sent")
	return nil
}

// noopMailer keeps local runs working without a SendGrid account.
type noopMailer struct{}

func (m *noopMailer) SendVerificationEmail(_ context.Context, recipient, _ string) error {
	logrus.WithField("email", recipient).Info("Email delivery disabled, skipping verification email")
	return nil
}
