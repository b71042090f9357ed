package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/rolecraft/rolecraft/internal/model"
)

const (
	// OTPDigits is the length of an issued code.
	OTPDigits = 6
	// OTPTTL is how long an issued code stays valid.
	OTPTTL = 10 * time.Minute
)

var otpSpace = big.NewInt(1_000_000)

// OTPStore is the persistence the OTP engine needs.
type OTPStore interface {
	SetOTPChallenge(ctx context.Context, id, hash string, expiresAt time.Time) error
	ClearOTPChallenge(ctx context.Context, id, hash string) error
}

// OTPEngine issues and checks six-digit one-time codes bound to an admin.
// Only the SHA-256 of a code is persisted; a new code replaces the previous one.
type OTPEngine struct {
	store    OTPStore
	now      func() time.Time
	generate func() (string, error)
}

// NewOTPEngine creates an engine. now may be nil, in which case time.Now is used.
func NewOTPEngine(store OTPStore, now func() time.Time) *OTPEngine {
	if now == nil {
		now = time.Now
	}
	return &OTPEngine{store: store, now: now, generate: generateCode}
}

// WithGenerator replaces the random code source. Intended for tests that need
// a known code.
func (e *OTPEngine) WithGenerator(fn func() (string, error)) *OTPEngine {
	e.generate = fn
	return e
}

// Now returns the engine's current time.
func (e *OTPEngine) Now() time.Time { return e.now() }

// Issue generates a fresh code for admin, persists its hash with a 10 minute
// expiry and returns the plaintext for delivery. admin.OTP is updated to match.
func (e *OTPEngine) Issue(ctx context.Context, admin *model.Admin) (string, error) {
	code, err := e.generate()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	challenge := &model.OTPChallenge{
		HashedCode: HashOTP(code),
		ExpiresAt:  e.now().Add(OTPTTL).UTC(),
	}
	if err := e.store.SetOTPChallenge(ctx, admin.ID, challenge.HashedCode, challenge.ExpiresAt); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	admin.OTP = challenge
	return code, nil
}

// Verify reports whether code matches admin's outstanding challenge and the
// challenge has not expired. It does not consume the challenge.
func (e *OTPEngine) Verify(admin *model.Admin, code string) bool {
	if admin == nil || admin.OTP == nil || admin.OTP.Expired(e.now()) {
		return false
	}
	supplied := HashOTP(code)
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(admin.OTP.HashedCode)) == 1
}

// Rollback removes the challenge installed by Issue, unless it has already
// been replaced by a newer one.
func (e *OTPEngine) Rollback(ctx context.Context, admin *model.Admin) error {
	if admin.OTP == nil {
		return nil
	}
	err := e.store.ClearOTPChallenge(ctx, admin.ID, admin.OTP.HashedCode)
	admin.OTP = nil
	return err
}

// HashOTP returns the hex SHA-256 digest of code.
func HashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateCode returns a uniformly random code in 000000-999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}
