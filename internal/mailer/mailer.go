// Package mailer delivers transactional email. Only the activation mail
// exists today; everything goes through the Mailer interface so tests and
// SMTP-less environments swap in the logging implementation.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"quill/internal/config"
	"quill/internal/middleware"
)

// Mailer sends transactional mail.
type Mailer interface {
	SendActivation(ctx context.Context, to, activationURL string) error
}

// NewFromConfig returns an SMTP mailer when SMTP_HOST is configured and the
// logging fallback otherwise.
func NewFromConfig(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return &LogMailer{}
	}
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

// SendActivation delivers the account-activation link.
func (m *SMTPMailer) SendActivation(ctx context.Context, to, activationURL string) error {
	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Activate your Quill account\r\n\r\n"+
			"Welcome to Quill!\r\n\r\nActivate your account within 4 hours:\r\n%s\r\n",
		m.from, to, activationURL,
	)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("send activation mail: %w", err)
	}
	return nil
}

// LogMailer writes the mail to the log instead of sending it. Used in
// development and tests.
type LogMailer struct{}

// SendActivation logs the activation link.
func (m *LogMailer) SendActivation(ctx context.Context, to, activationURL string) error {
	middleware.Logger.InfoContext(ctx, "activation mail (log only)",
		slog.String("to", to),
		slog.String("url", activationURL),
	)
	return nil
}
