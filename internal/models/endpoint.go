package models

import (
	"time"

	"github.com/google/uuid"
)

// Endpoint is an inspectable webhook endpoint addressed by its public slug.
// Exactly one of UserID or TrialToken is set: an endpoint starts out owned by
// an anonymous trial token and is adopted by a user exactly once, never back.
type Endpoint struct {
	ID         uuid.UUID
	Slug       string
	Name       string
	UserID     *uuid.UUID // nil until the endpoint is claimed
	TrialToken *string    // nil once the endpoint is claimed
	CreatedAt  time.Time
}

func (e *Endpoint) Claimed() bool {
	return e.UserID != nil
}
