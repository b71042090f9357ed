package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rolecraft/rolecraft/internal/mail"
	"github.com/rolecraft/rolecraft/internal/model"
)

type stubSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *stubSender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// untouchableStore fails the test on any store access.
type untouchableStore struct {
	CredentialStore
	t *testing.T
}

func (s untouchableStore) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	s.t.Fatal("store accessed")
	return nil, nil
}

func (s untouchableStore) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	s.t.Fatal("store accessed")
	return nil, nil
}

func newTestAccounts(t *testing.T, opts AccountOptions) (*AccountService, *stubSender) {
	t.Helper()
	if opts.Hasher == nil {
		opts.Hasher = BcryptHasher{Cost: bcrypt.MinCost}
	}
	sender := &stubSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := NewAccountService(newTestStore(t), NewAuthService(testSecret, time.Hour), sender, logger, opts)
	return accounts, sender
}

func TestEmergencyResetUnconfiguredSkipsStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := NewAccountService(untouchableStore{t: t}, NewAuthService(testSecret, time.Hour), &stubSender{}, logger, AccountOptions{})

	err := accounts.EmergencyReset(context.Background(), "anything", "", "Emergency1!")
	if !errors.Is(err, ErrMisconfiguredServer) {
		t.Fatalf("expected ErrMisconfiguredServer, got %v", err)
	}
}

func TestEmergencyResetWrongKeySkipsStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := NewAccountService(untouchableStore{t: t}, NewAuthService(testSecret, time.Hour), &stubSender{}, logger,
		AccountOptions{MasterKey: "the-real-master-key-0123456789abcdef"})

	for _, key := range []string{"", "the-real-master-key", "the-real-master-key-0123456789abcdeF"} {
		err := accounts.EmergencyReset(context.Background(), key, "", "Emergency1!")
		if !errors.Is(err, ErrInvalidMasterKey) {
			t.Errorf("key %q: expected ErrInvalidMasterKey, got %v", key, err)
		}
	}
}

func TestEmergencyResetWeakPassword(t *testing.T) {
	accounts, _ := newTestAccounts(t, AccountOptions{MasterKey: "the-real-master-key-0123456789abcdef"})
	ctx := context.Background()
	if _, err := accounts.Bootstrap(ctx, "a@x.com", "Passw0rd!"); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	err := accounts.EmergencyReset(ctx, "the-real-master-key-0123456789abcdef", "", "short")
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestEmergencyResetUnknownEmail(t *testing.T) {
	accounts, _ := newTestAccounts(t, AccountOptions{MasterKey: "the-real-master-key-0123456789abcdef"})
	ctx := context.Background()
	if _, err := accounts.Bootstrap(ctx, "a@x.com", "Passw0rd!"); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	err := accounts.EmergencyReset(ctx, "the-real-master-key-0123456789abcdef", "ghost@x.com", "Emergency1!")
	if !errors.Is(err, ErrAdminNotFound) {
		t.Fatalf("expected ErrAdminNotFound, got %v", err)
	}
}

func TestBootstrapDisabled(t *testing.T) {
	accounts, _ := newTestAccounts(t, AccountOptions{DisableBootstrap: true})

	_, err := accounts.Bootstrap(context.Background(), "a@x.com", "Passw0rd!")
	if !errors.Is(err, ErrBootstrapDisabled) {
		t.Fatalf("expected ErrBootstrapDisabled, got %v", err)
	}
}

func TestBootstrapValidatesEmail(t *testing.T) {
	accounts, _ := newTestAccounts(t, AccountOptions{})

	_, err := accounts.Bootstrap(context.Background(), "not-an-email", "Passw0rd!")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	_, err = accounts.Bootstrap(context.Background(), "", "Passw0rd!")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestCreateAdminDuplicate(t *testing.T) {
	accounts, _ := newTestAccounts(t, AccountOptions{})
	ctx := context.Background()

	if _, err := accounts.CreateAdmin(ctx, "a@x.com", "Passw0rd!"); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	_, err := accounts.CreateAdmin(ctx, " A@X.com", "Passw0rd!")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate email, got %v", err)
	}

	admins, err := accounts.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if len(admins) != 1 || admins[0].Email != "a@x.com" {
		t.Errorf("unexpected admins %+v", admins)
	}
}

func TestCreateAdminNeverStoresPlaintext(t *testing.T) {
	accounts, _ := newTestAccounts(t, AccountOptions{})

	admin, err := accounts.CreateAdmin(context.Background(), "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if admin.PasswordHash == "Passw0rd!" || admin.PasswordHash == "" {
		t.Errorf("unexpected password hash %q", admin.PasswordHash)
	}
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	accounts, _ := newTestAccounts(t, AccountOptions{})
	ctx := context.Background()
	if _, err := accounts.Bootstrap(ctx, "a@x.com", "Passw0rd!"); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	_, errUnknown := accounts.Login(ctx, "ghost@x.com", "Passw0rd!")
	_, errWrong := accounts.Login(ctx, "a@x.com", "Wrong-pass")
	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials twice, got %v / %v", errUnknown, errWrong)
	}
	if AsError(errUnknown).Message != AsError(errWrong).Message {
		t.Error("login failure messages differ")
	}

	session, err := accounts.Login(ctx, "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.Admin.Email != "a@x.com" || session.Token == "" {
		t.Errorf("unexpected session %+v", session)
	}
}

func TestMeUnknownAdmin(t *testing.T) {
	accounts, _ := newTestAccounts(t, AccountOptions{})

	_, err := accounts.Me(context.Background(), "no-such-id")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRequestPasswordResetRequiresEmail(t *testing.T) {
	accounts, sender := newTestAccounts(t, AccountOptions{})

	err := accounts.RequestPasswordReset(context.Background(), "  ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("expected no mail")
	}
}

func TestRequestPasswordResetSendsResetMail(t *testing.T) {
	accounts, sender := newTestAccounts(t, AccountOptions{})
	ctx := context.Background()
	if _, err := accounts.Bootstrap(ctx, "a@x.com", "Passw0rd!"); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	accounts.OTP().WithGenerator(func() (string, error) { return "246810", nil })

	if err := accounts.RequestPasswordReset(ctx, "A@x.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	accounts.Wait()
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(sender.sent))
	}
	if sender.sent[0].To != "a@x.com" || sender.sent[0].Subject != "Your password reset code" {
		t.Errorf("unexpected mail %+v", sender.sent[0])
	}

	if err := accounts.ResetPassword(ctx, "a@x.com", "246810", "ResetPass1!"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := accounts.Login(ctx, "a@x.com", "ResetPass1!"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
}

func TestRequestPasswordResetDeliveryFailureRollsBack(t *testing.T) {
	accounts, sender := newTestAccounts(t, AccountOptions{})
	ctx := context.Background()
	session, err := accounts.Bootstrap(ctx, "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	sender.err = errors.New("smtp: 535 authentication failed")

	if err := accounts.RequestPasswordReset(ctx, "a@x.com"); err != nil {
		t.Fatalf("expected delivery failure to stay hidden, got %v", err)
	}
	accounts.Wait()

	admin, err := accounts.Me(ctx, session.Admin.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if admin.OTP != nil {
		t.Error("expected challenge to be rolled back")
	}
}

func TestResetPasswordChecksCodeBeforePassword(t *testing.T) {
	accounts, _ := newTestAccounts(t, AccountOptions{})
	ctx := context.Background()
	if _, err := accounts.Bootstrap(ctx, "a@x.com", "Passw0rd!"); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	accounts.OTP().WithGenerator(func() (string, error) { return "246810", nil })
	if err := accounts.RequestPasswordReset(ctx, "a@x.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	accounts.Wait()

	tests := []struct {
		name     string
		email    string
		code     string
		password string
		want     error
	}{
		{"wrong code weak password", "a@x.com", "000000", "weak", ErrInvalidOrExpiredOTP},
		{"unknown email weak password", "nobody@x.com", "246810", "weak", ErrInvalidOrExpiredOTP},
		{"right code weak password", "a@x.com", "246810", "weak", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := accounts.ResetPassword(ctx, tt.email, tt.code, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	// The failed attempts left the challenge usable.
	if err := accounts.ResetPassword(ctx, "a@x.com", "246810", "ResetPass1!"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
}

func TestInitiatePasswordChangeDeliveryFailure(t *testing.T) {
	accounts, sender := newTestAccounts(t, AccountOptions{})
	ctx := context.Background()
	session, err := accounts.Bootstrap(ctx, "a@x.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	sender.err = errors.New("smtp: 535 authentication failed")

	err = accounts.InitiatePasswordChange(ctx, session.Admin.ID, "Passw0rd!")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if AsError(err).Status() != 500 {
		t.Errorf("status: got %d", AsError(err).Status())
	}

	admin, err := accounts.Me(ctx, session.Admin.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if admin.OTP != nil {
		t.Error("expected challenge to be rolled back")
	}
}
