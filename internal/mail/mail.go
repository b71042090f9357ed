// Package mail delivers transactional email such as one-time codes.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned by senders that have no transport configured.
var ErrNotConfigured = errors.New("mail transport not configured")

// Message is a single outgoing HTML email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers messages. Send returns nil only once the transport has
// accepted the message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail through an SMTP relay using gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates an SMTP sender. Credentials are trimmed of
// surrounding whitespace, which commonly leaks in from .env files. When from
// is empty the username is used as the sender address.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	from = strings.TrimSpace(from)
	if from == "" {
		from = username
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send dials the relay and delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, "RoleCraft Security")
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. It is only
// meant for local development, where the code in the body is needed to
// finish a flow.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs msg and reports success.
func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Logger.WarnContext(ctx, "mail not delivered (development sender)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.HTMLBody,
	)
	return nil
}

// DisabledSender fails every send. It is used when no SMTP relay is
// configured outside development so OTP flows fail loudly instead of
// silently dropping codes.
type DisabledSender struct{}

// Send always returns ErrNotConfigured.
func (DisabledSender) Send(ctx context.Context, msg Message) error {
	return ErrNotConfigured
}
