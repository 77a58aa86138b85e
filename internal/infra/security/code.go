package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var codeRange = big.NewInt(900000)

// GenerateVerificationCode returns a 6-digit code drawn uniformly from
// 100000-999999 using a cryptographically secure source.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeRange)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
