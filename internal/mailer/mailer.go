// Package mailer delivers outbound mail for the verification flow.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/avoronin/authd/internal/config"
	"github.com/avoronin/authd/internal/logger"
)

// Sender delivers a single message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New picks the SMTP sender when a host is configured and falls back
// to log-only delivery for local development.
func New(cfg config.SMTP, log *logger.Logger) Sender {
	if cfg.Host == "" {
		return &LogSender{from: cfg.From, logger: log}
	}
	return &SMTPSender{cfg: cfg}
}

// SMTPSender delivers mail over plain SMTP with optional AUTH PLAIN.
type SMTPSender struct {
	cfg config.SMTP
}

var _ Sender = (*SMTPSender)(nil)

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}

	addr := s.cfg.Host + ":" + s.cfg.Port
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, buildMessage(s.cfg.From, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender writes the message to the log instead of sending it.
type LogSender struct {
	from   string
	logger *logger.Logger
}

var _ Sender = (*LogSender)(nil)

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("mail delivery skipped, SMTP not configured",
		"from", s.from,
		"to", to,
		"subject", subject,
		"body", body)
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
