package validate

import (
	"strings"

	"github.com/smolentsev/hookbin/internal/apperrors"
)

// NormalizeEmail lowercases the address and strips surrounding whitespace.
// Addresses are compared and stored case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Email checks the address shape used for magic links: a local part, an '@',
// and a domain containing a dot, with no whitespace anywhere.
// Deliverability is not checked here, the mailer finds out.
func Email(email string) error {
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return apperrors.ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return apperrors.ErrInvalidEmail
	}

	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return apperrors.ErrInvalidEmail
	}

	return nil
}
