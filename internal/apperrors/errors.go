package apperrors

import (
	"errors"
)

var (
	ErrInvalidEmail = errors.New("email address is not valid")

	// ErrTokenInvalid covers absent, already used and expired tokens alike.
	// Callers must not be able to tell those cases apart.
	ErrTokenInvalid    = errors.New("token is invalid or expired")
	ErrUnauthenticated = errors.New("authentication required")

	ErrUserNotFound = errors.New("user not found")

	ErrEndpointNotFound       = errors.New("endpoint not found")
	ErrEndpointNotOwned       = errors.New("endpoint is not owned by this trial session")
	ErrEndpointAlreadyClaimed = errors.New("endpoint is already claimed")
	ErrSlugTaken              = errors.New("endpoint slug is already taken")
	ErrAllocationExhausted    = errors.New("slug allocation attempts exhausted")

	ErrMailDelivery = errors.New("mail delivery failed")
)
