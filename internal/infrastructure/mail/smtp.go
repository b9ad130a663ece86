// Package mail implements the Mailer port over plain SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// Config carries the SMTP settings. When Host is empty the mailer runs in
// log-only mode: reset links are written to the log instead of being sent,
// which is how development environments operate.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg    Config
	logger zerolog.Logger
}

func NewSMTPMailer(cfg Config, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendPasswordReset delivers the recovery link to the given address.
func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	if m.cfg.Host == "" {
		m.logger.Info().Str("to", to).Str("url", resetURL).Msg("smtp disabled, reset link logged")
		return nil
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Reset your password\r\n\r\n"+
			"A password reset was requested for your account.\r\n\r\n"+
			"Open the link below to choose a new password. The link expires in one hour.\r\n\r\n%s\r\n",
		m.cfg.From, to, resetURL,
	)

	addr := m.cfg.Host + ":" + m.cfg.Port
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}
