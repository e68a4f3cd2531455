package endpoint

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

// Public endpoint identifiers are short random lowercase alphanumeric slugs.
// Lengths 8 to 10 give a keyspace of at least 36^8, so random collisions are
// practically impossible, but allocation still verifies uniqueness.
const (
	slugAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	slugMinLength = 8
	slugMaxLength = 10
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]{8,10}$`)

// NewSlug samples a slug uniformly: length from {8, 9, 10}, every character
// from [a-z0-9].
func NewSlug() (string, error) {
	span, err := rand.Int(rand.Reader, big.NewInt(slugMaxLength-slugMinLength+1))
	if err != nil {
		return "", fmt.Errorf("error while picking slug length. Err: %w", err)
	}
	length := slugMinLength + int(span.Int64())

	b := make([]byte, length)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(slugAlphabet))))
		if err != nil {
			return "", fmt.Errorf("error while picking slug character. Err: %w", err)
		}
		b[i] = slugAlphabet[idx.Int64()]
	}

	return string(b), nil
}

// ValidSlug reports whether the candidate has the exact shape of an
// allocated slug. Used to reject externally supplied identifiers early.
func ValidSlug(candidate string) bool {
	return slugPattern.MatchString(candidate)
}
