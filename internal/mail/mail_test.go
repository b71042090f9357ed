package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestOTPMessage(t *testing.T) {
	tests := []struct {
		purpose     string
		wantSubject string
		wantHeading string
	}{
		{PurposeChangePassword, "Confirm your password change", "Password change requested"},
		{PurposeResetPassword, "Your password reset code", "Password reset requested"},
	}

	for _, tt := range tests {
		t.Run(tt.purpose, func(t *testing.T) {
			msg, err := OTPMessage("admin@example.com", "012345", tt.purpose, 10)
			if err != nil {
				t.Fatalf("OTPMessage: %v", err)
			}
			if msg.To != "admin@example.com" {
				t.Errorf("To: got %q", msg.To)
			}
			if msg.Subject != tt.wantSubject {
				t.Errorf("Subject: got %q, want %q", msg.Subject, tt.wantSubject)
			}
			for _, want := range []string{"012345", tt.wantHeading, "10 minutes"} {
				if !strings.Contains(msg.HTMLBody, want) {
					t.Errorf("body missing %q:\n%s", want, msg.HTMLBody)
				}
			}
		})
	}
}

func TestOTPMessageEscapesInput(t *testing.T) {
	msg, err := OTPMessage("admin@example.com", "<script>", PurposeResetPassword, 10)
	if err != nil {
		t.Fatalf("OTPMessage: %v", err)
	}
	if strings.Contains(msg.HTMLBody, "<script>") {
		t.Error("expected code to be HTML-escaped")
	}
}

func TestNewSMTPSenderTrimsCredentials(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "  bot@example.com\n", " secret \t", "")
	if s.dialer.Username != "bot@example.com" {
		t.Errorf("username: got %q", s.dialer.Username)
	}
	if s.dialer.Password != "secret" {
		t.Errorf("password: got %q", s.dialer.Password)
	}
	if s.from != "bot@example.com" {
		t.Errorf("from should default to username, got %q", s.from)
	}

	s = NewSMTPSender("smtp.example.com", 587, "bot@example.com", "secret", "security@example.com")
	if s.from != "security@example.com" {
		t.Errorf("from: got %q", s.from)
	}
}

func TestSMTPSenderHonoursCancelledContext(t *testing.T) {
	s := NewSMTPSender("127.0.0.1", 1, "u", "p", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, Message{To: "a@x.com"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDisabledSender(t *testing.T) {
	err := DisabledSender{}.Send(context.Background(), Message{To: "a@x.com"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := LogSender{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	if err := s.Send(context.Background(), Message{To: "a@x.com", Subject: "hi", HTMLBody: "code 123456"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "a@x.com") || !strings.Contains(buf.String(), "123456") {
		t.Errorf("unexpected log output %q", buf.String())
	}
}
