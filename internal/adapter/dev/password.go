package dev

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/community-soap/user-service/internal/core/port"
)

// PasswordVerifier is a development-only credential port using unsalted
// SHA-256. Real deployments plug in the platform's password hasher.
type PasswordVerifier struct{}

// NewPasswordVerifier constructs the development verifier.
func NewPasswordVerifier() *PasswordVerifier {
	return &PasswordVerifier{}
}

// Hash returns the hex-encoded SHA-256 digest of the password.
func (PasswordVerifier) Hash(rawPassword string) (string, error) {
	digest := sha256.Sum256([]byte(rawPassword))
	return hex.EncodeToString(digest[:]), nil
}

// Verify compares the password against a stored digest in constant time.
func (v PasswordVerifier) Verify(rawPassword, passwordHash string) (bool, error) {
	computed, err := v.Hash(rawPassword)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(passwordHash)) == 1, nil
}

var _ port.PasswordVerifier = (*PasswordVerifier)(nil)
