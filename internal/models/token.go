package models

import (
	"time"
)

// TokenFamily names the kind of a stored token.
type TokenFamily string

const (
	FamilyLogin   TokenFamily = "login"
	FamilySession TokenFamily = "session"
	FamilyClaim   TokenFamily = "claim"
)

// AuthToken is a server side credential: a single-use login or claim token,
// or a sliding session. Value is 32 random bytes hex encoded for every family.
type AuthToken struct {
	Family TokenFamily
	Value  string
	Email  string

	// Claim payload: the endpoint being claimed and the trial token that
	// owned it when the claim was requested. Empty for other families.
	EndpointSlug string
	TrialToken   string

	CreatedAt time.Time
	ExpiresAt time.Time
}
