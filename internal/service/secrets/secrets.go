// Package secrets generates the opaque random values used as login, session,
// claim and trial tokens.
package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the entropy of every token family.
// Encoded values are twice as many hex characters.
const TokenBytes = 32

// NewToken returns a fresh 64 character lowercase hex token.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while reading random bytes. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}
