// Package mailer delivers the magic-link and claim-link emails.
// The auth and claim services only construct links and delegate here.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/smolentsev/hookbin/internal/logger"
)

type Mailer interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

type SMTPConfig struct {
	// Addr in host:port form
	Addr     string
	From     string
	Username string
	Password string
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, to string, subject string, body string) error {
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.cfg.Username != "" {
		host, _, _ := strings.Cut(m.cfg.Addr, ":")
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}

	err := smtp.SendMail(m.cfg.Addr, auth, m.cfg.From, []string{to}, []byte(msg))
	if err != nil {
		return fmt.Errorf("error while sending mail to %s. Err: %w", to, err)
	}

	return nil
}

// LogMailer writes mail to the log instead of delivering it.
// Meant for development: the sign-in link can be copied from the log line.
type LogMailer struct {
	logger logger.Logger
}

func NewLog(l logger.Logger) *LogMailer {
	return &LogMailer{logger: l}
}

func (m *LogMailer) Send(_ context.Context, to string, subject string, body string) error {
	m.logger.Info("outgoing mail", "to", to, "subject", subject, "body", body)
	return nil
}
