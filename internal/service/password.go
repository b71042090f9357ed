package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted when one is set.
const MinPasswordLength = 8

// PasswordHasher is the one-way transform used for stored passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher hashes passwords with bcrypt at Cost. A zero Cost means
// bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

// Hash returns the bcrypt hash of plaintext, salted by bcrypt itself.
func (h BcryptHasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. bcrypt compares in constant
// time.
func (h BcryptHasher) Verify(plaintext, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}

// hashNewPassword validates plaintext against the password policy and hashes
// it. Every path that sets a password goes through here.
func hashNewPassword(h PasswordHasher, plaintext string) (string, error) {
	if len(plaintext) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := h.Hash(plaintext)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrInvalidInput.withCause(err)
		}
		return "", ErrStoreUnavailable.withCause(err)
	}
	return hash, nil
}
