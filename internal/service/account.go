package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rolecraft/rolecraft/internal/config"
	"github.com/rolecraft/rolecraft/internal/mail"
	"github.com/rolecraft/rolecraft/internal/model"
)

// ResetRequestedMessage is returned by forgot-password whether or not the
// address belongs to an admin.
const ResetRequestedMessage = "If that email exists, an OTP has been sent"

// CredentialStore is the persistence AccountService needs. *config.Store
// implements it.
type CredentialStore interface {
	OTPStore
	GetAdmin(ctx context.Context, id string) (*model.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	ListAdmins(ctx context.Context) ([]model.Admin, error)
	CountAdmins(ctx context.Context) (int, error)
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	CreateFirstAdmin(ctx context.Context, admin *model.Admin) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAdminLastLogin(ctx context.Context, id string) error
	ConsumeOTPByID(ctx context.Context, id, hash string, now time.Time, passwordHash string) error
	ConsumeOTPByEmail(ctx context.Context, email, hash string, now time.Time, passwordHash string) error
}

// AccountOptions tunes an AccountService. The zero value is usable.
type AccountOptions struct {
	// MasterKey gates EmergencyReset. Empty disables the path.
	MasterKey string
	// DisableBootstrap turns off the create-first-admin operation entirely.
	DisableBootstrap bool
	// Hasher defaults to BcryptHasher with bcrypt.DefaultCost.
	Hasher PasswordHasher
	// Now defaults to time.Now and drives OTP expiry.
	Now func() time.Time
}

// AccountService sequences the credential store, password hasher, OTP engine,
// token issuer and mail sender into the admin authentication flows.
type AccountService struct {
	store  CredentialStore
	auth   *AuthService
	otp    *OTPEngine
	hasher PasswordHasher
	mailer mail.Sender
	logger *slog.Logger

	masterKey        string
	disableBootstrap bool

	validate *validator.Validate

	dummyOnce sync.Once
	dummy     string

	// pending tracks forgot-password deliveries still running.
	pending sync.WaitGroup
}

// NewAccountService wires an AccountService.
func NewAccountService(store CredentialStore, auth *AuthService, mailer mail.Sender, logger *slog.Logger, opts AccountOptions) *AccountService {
	hasher := opts.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &AccountService{
		store:            store,
		auth:             auth,
		otp:              NewOTPEngine(store, opts.Now),
		hasher:           hasher,
		mailer:           mailer,
		logger:           logger,
		masterKey:        opts.MasterKey,
		disableBootstrap: opts.DisableBootstrap,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

// OTP returns the engine used for challenges.
func (s *AccountService) OTP() *OTPEngine { return s.otp }

// Wait blocks until every queued forgot-password delivery has finished.
func (s *AccountService) Wait() { s.pending.Wait() }

// ---------------------------------------------------------------------------
// Login / identity
// ---------------------------------------------------------------------------

// Login checks email and password and issues a session token. Unknown email
// and wrong password fail identically.
func (s *AccountService) Login(ctx context.Context, email, password string) (*model.SessionData, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			// Spend the same bcrypt time as a real comparison.
			s.hasher.Verify(password, s.dummyHash())
			return nil, ErrInvalidCredentials
		}
		return nil, ErrStoreUnavailable.withCause(err)
	}

	if !s.hasher.Verify(password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	session, err := s.session(ctx, admin)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateAdminLastLogin(ctx, admin.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login", "admin_id", admin.ID, "error", err)
	}
	return session, nil
}

// Me returns the admin identified by a verified session.
func (s *AccountService) Me(ctx context.Context, adminID string) (*model.Admin, error) {
	admin, err := s.store.GetAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, ErrStoreUnavailable.withCause(err)
	}
	return admin, nil
}

// ListAdmins returns every admin account.
func (s *AccountService) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return nil, ErrStoreUnavailable.withCause(err)
	}
	return admins, nil
}

func (s *AccountService) session(ctx context.Context, admin *model.Admin) (*model.SessionData, error) {
	token, err := s.auth.IssueToken(ctx, admin.ID, admin.Email)
	if err != nil {
		return nil, ErrStoreUnavailable.withCause(err)
	}
	return &model.SessionData{Admin: admin.Summary(), Token: token}, nil
}

func (s *AccountService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("rolecraft-timing-equalizer")
	})
	return s.dummy
}

// ---------------------------------------------------------------------------
// Account creation
// ---------------------------------------------------------------------------

// Bootstrap creates the first admin and signs it in. It refuses once any
// admin exists, whatever the input.
func (s *AccountService) Bootstrap(ctx context.Context, email, password string) (*model.SessionData, error) {
	if s.disableBootstrap {
		return nil, ErrBootstrapDisabled
	}

	n, err := s.store.CountAdmins(ctx)
	if err != nil {
		return nil, ErrStoreUnavailable.withCause(err)
	}
	if n > 0 {
		return nil, ErrAdminAlreadyExists
	}

	admin, err := s.newAdmin(email, password)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateFirstAdmin(ctx, admin); err != nil {
		if errors.Is(err, config.ErrAdminExists) {
			return nil, ErrAdminAlreadyExists
		}
		return nil, ErrStoreUnavailable.withCause(err)
	}

	s.logger.InfoContext(ctx, "first admin created", "admin_id", admin.ID)
	return s.session(ctx, admin)
}

// CreateAdmin adds an admin without the first-admin guard. It backs the
// operator CLI and is not exposed over HTTP.
func (s *AccountService) CreateAdmin(ctx context.Context, email, password string) (*model.Admin, error) {
	admin, err := s.newAdmin(email, password)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, config.ErrDuplicateEmail) {
			return nil, ErrInvalidInput.withCause(err)
		}
		return nil, ErrStoreUnavailable.withCause(err)
	}
	return admin, nil
}

// newAdmin validates input and hashes the password. Plaintext never leaves
// this function.
func (s *AccountService) newAdmin(email, password string) (*model.Admin, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, &Error{Kind: KindValidation, Code: ErrInvalidInput.Code, Message: "Please provide a valid email", Err: err}
	}
	hash, err := hashNewPassword(s.hasher, password)
	if err != nil {
		return nil, err
	}
	return &model.Admin{Email: email, PasswordHash: hash}, nil
}

// ---------------------------------------------------------------------------
// Change password (authenticated, two-step)
// ---------------------------------------------------------------------------

// InitiatePasswordChange verifies currentPassword and mails a fresh OTP to the
// admin. Nothing is stored when the password is wrong.
func (s *AccountService) InitiatePasswordChange(ctx context.Context, adminID, currentPassword string) error {
	admin, err := s.Me(ctx, adminID)
	if err != nil {
		return err
	}
	if currentPassword == "" || !s.hasher.Verify(currentPassword, admin.PasswordHash) {
		return ErrIncorrectPassword
	}
	return s.issueAndDeliver(ctx, admin, mail.PurposeChangePassword)
}

// ConfirmPasswordChange consumes the admin's OTP and sets newPassword. The
// OTP check, password write and challenge clear are one conditional update.
func (s *AccountService) ConfirmPasswordChange(ctx context.Context, adminID, code, newPassword string) error {
	admin, err := s.Me(ctx, adminID)
	if err != nil {
		return err
	}
	if !s.otp.Verify(admin, code) {
		return ErrInvalidOrExpiredOTP
	}

	hash, err := hashNewPassword(s.hasher, newPassword)
	if err != nil {
		return err
	}

	if err := s.store.ConsumeOTPByID(ctx, admin.ID, HashOTP(code), s.otp.Now(), hash); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			// Consumed or replaced between Verify and the update.
			return ErrInvalidOrExpiredOTP
		}
		return ErrStoreUnavailable.withCause(err)
	}

	s.logger.InfoContext(ctx, "password changed", "admin_id", admin.ID)
	return nil
}

// ---------------------------------------------------------------------------
// Forgot password (unauthenticated, two-step)
// ---------------------------------------------------------------------------

// RequestPasswordReset mails an OTP when email belongs to an admin. The OTP
// is issued and sent in the background so neither the response nor its
// latency depends on the address being known; only a missing email or a
// failed lookup produce an error. Call Wait to drain pending deliveries.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return &Error{Kind: KindValidation, Code: ErrInvalidInput.Code, Message: "Please provide an email"}
	}

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			s.logger.DebugContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return ErrStoreUnavailable.withCause(err)
	}

	bg := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		// Delivery failures are rolled back and logged inside.
		if err := s.issueAndDeliver(bg, admin, mail.PurposeResetPassword); err != nil && !errors.Is(err, ErrDeliveryFailed) {
			s.logger.ErrorContext(bg, "password reset otp not issued", "admin_id", admin.ID, "error", err)
		}
	}()
	return nil
}

// ResetPassword sets newPassword for the admin owning email if code matches
// that admin's unexpired OTP, in a single guarded update.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if strings.TrimSpace(email) == "" || code == "" {
		return ErrInvalidOrExpiredOTP
	}

	// The code is checked before the new password is validated or hashed.
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return ErrInvalidOrExpiredOTP
		}
		return ErrStoreUnavailable.withCause(err)
	}
	if !s.otp.Verify(admin, code) {
		return ErrInvalidOrExpiredOTP
	}

	hash, err := hashNewPassword(s.hasher, newPassword)
	if err != nil {
		return err
	}

	if err := s.store.ConsumeOTPByEmail(ctx, email, HashOTP(code), s.otp.Now(), hash); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return ErrInvalidOrExpiredOTP
		}
		return ErrStoreUnavailable.withCause(err)
	}

	s.logger.InfoContext(ctx, "password reset with otp")
	return nil
}

// issueAndDeliver stores a new OTP for admin and mails it. When delivery
// fails the challenge is cleared again so no unusable code remains.
func (s *AccountService) issueAndDeliver(ctx context.Context, admin *model.Admin, purpose string) error {
	code, err := s.otp.Issue(ctx, admin)
	if err != nil {
		return ErrStoreUnavailable.withCause(err)
	}

	msg, err := mail.OTPMessage(admin.Email, code, purpose, int(OTPTTL/time.Minute))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "otp delivery failed", "admin_id", admin.ID, "purpose", purpose, "error", err)
		// The request context may already be cancelled; the compensating
		// clear must still run.
		if rbErr := s.otp.Rollback(context.WithoutCancel(ctx), admin); rbErr != nil && !errors.Is(rbErr, config.ErrNotFound) {
			s.logger.ErrorContext(ctx, "otp rollback failed", "admin_id", admin.ID, "error", rbErr)
		}
		return ErrDeliveryFailed.withCause(err)
	}

	s.logger.InfoContext(ctx, "otp issued", "admin_id", admin.ID, "purpose", purpose)
	return nil
}

// ---------------------------------------------------------------------------
// Emergency reset (master key)
// ---------------------------------------------------------------------------

// EmergencyReset force-sets newPassword when masterKey matches the
// configured key, bypassing OTP and email. email selects the admin; it may be
// empty only when exactly one admin exists. Failures are logged for audit
// without the supplied key.
func (s *AccountService) EmergencyReset(ctx context.Context, masterKey, email, newPassword string) error {
	if s.masterKey == "" {
		s.logger.ErrorContext(ctx, "emergency reset attempted but no master key is configured")
		return ErrMisconfiguredServer
	}
	if subtle.ConstantTimeCompare([]byte(masterKey), []byte(s.masterKey)) != 1 {
		s.logger.WarnContext(ctx, "emergency reset rejected: invalid master key")
		return ErrInvalidMasterKey
	}

	admin, err := s.emergencyTarget(ctx, email)
	if err != nil {
		return err
	}

	hash, err := hashNewPassword(s.hasher, newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, admin.ID, hash); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return ErrAdminNotFound
		}
		return ErrStoreUnavailable.withCause(err)
	}

	s.logger.WarnContext(ctx, "emergency password reset applied", "admin_id", admin.ID)
	return nil
}

func (s *AccountService) emergencyTarget(ctx context.Context, email string) (*model.Admin, error) {
	if strings.TrimSpace(email) != "" {
		admin, err := s.store.GetAdminByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, config.ErrNotFound) {
				return nil, ErrAdminNotFound
			}
			return nil, ErrStoreUnavailable.withCause(err)
		}
		return admin, nil
	}

	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return nil, ErrStoreUnavailable.withCause(err)
	}
	switch len(admins) {
	case 0:
		return nil, ErrAdminNotFound
	case 1:
		return &admins[0], nil
	default:
		return nil, ErrAmbiguousAdmin
	}
}
