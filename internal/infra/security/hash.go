package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// TokenHasher produces hex-encoded SHA-256 digests of token material with a
// server-side pepper mixed in before hashing.
type TokenHasher struct {
	pepper string
}

// NewTokenHasher constructs a TokenHasher. The pepper is mandatory: hashes
// written without it would be comparable across deployments.
func NewTokenHasher(pepper string) (*TokenHasher, error) {
	if strings.TrimSpace(pepper) == "" {
		return nil, fmt.Errorf("token pepper is required")
	}
	return &TokenHasher{pepper: pepper}, nil
}

// Sum returns the hex-encoded SHA-256 digest of value+pepper.
func (h *TokenHasher) Sum(value string) string {
	digest := sha256.Sum256([]byte(value + h.pepper))
	return hex.EncodeToString(digest[:])
}
