package model

import (
	"strings"
	"time"
)

// Admin is the administrator account that owns the portfolios. Passwords are
// stored as bcrypt hashes and the outstanding OTP challenge, if any, is kept
// inline on the record.
type Admin struct {
	ID           string        `json:"id" db:"id"`
	Email        string        `json:"email" db:"email"`
	PasswordHash string        `json:"-" db:"password_hash"` // bcrypt hash, never expose
	OTP          *OTPChallenge `json:"-" db:"-"`
	LastLoginAt  *time.Time    `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// OTPChallenge is a pending one-time code bound to an Admin. Only the SHA-256
// hash of the code is ever stored.
type OTPChallenge struct {
	HashedCode string    `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the challenge can no longer be used at now. The
// boundary instant itself counts as expired.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// AdminSummary is the public projection of an Admin returned by login and
// bootstrap.
type AdminSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Summary returns the id/email projection of a.
func (a *Admin) Summary() AdminSummary {
	return AdminSummary{ID: a.ID, Email: a.Email}
}

// NormalizeEmail trims surrounding whitespace and lower-cases email so that
// each logical address maps to exactly one stored record.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
