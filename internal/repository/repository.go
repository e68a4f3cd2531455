package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/smolentsev/hookbin/internal/models"
)

// Token store keyed by (family, token value)
// Redemption and sliding must be single atomic statements at the storage
// layer: a read followed by a separate write allows double redemption
type TokenRepo interface {
	// Save token
	// The token stays readable until its ExpiresAt
	Save(ctx context.Context, token models.AuthToken) (models.AuthToken, error)

	// Atomically return and delete the token if it exists and is unexpired
	// Absent, already taken and expired tokens are indistinguishable:
	// all must return apperrors.ErrTokenInvalid
	TakeValid(ctx context.Context, family models.TokenFamily, value string) (models.AuthToken, error)

	// Atomically return the token and push its expiry to now+ttl if it is
	// unexpired. Expiry never moves backwards.
	// Absent or expired tokens must return apperrors.ErrTokenInvalid
	PeekRefresh(ctx context.Context, family models.TokenFamily, value string, ttl time.Duration) (models.AuthToken, error)

	// Delete the token unconditionally. Deleting a missing token is not an error
	DeleteToken(ctx context.Context, family models.TokenFamily, value string) error

	// Delete every token of the family whose payload references the endpoint.
	// Used to discard pending claim links once the endpoint found its owner
	DeleteByEndpoint(ctx context.Context, family models.TokenFamily, slug string) (int64, error)

	// Delete every token of the family issued for the trial identity
	DeleteByTrialToken(ctx context.Context, family models.TokenFamily, trialToken string) (int64, error)

	// Physically remove expired rows. Reads never depend on this having run
	DeleteExpired(ctx context.Context) (int64, error)
}

type UserRepo interface {
	// Return the user with the given email, creating it first if needed
	// Email is expected to be normalized (lowercased) by the caller
	GetOrCreateByEmail(ctx context.Context, email string) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type EndpointRepo interface {
	// Create endpoint
	// If the slug is already taken must return apperrors.ErrSlugTaken
	Create(ctx context.Context, endpoint models.Endpoint) (models.Endpoint, error)

	// Get endpoint by public slug
	// If not found must return apperrors.ErrEndpointNotFound
	GetBySlug(ctx context.Context, slug string) (models.Endpoint, error)

	SlugExists(ctx context.Context, slug string) (bool, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Endpoint, error)
	ListByTrialToken(ctx context.Context, trialToken string) ([]models.Endpoint, error)

	// Atomically hand the endpoint over to the user, but only while it is
	// still owned by the given trial token. If the endpoint is gone or was
	// claimed concurrently must return apperrors.ErrEndpointAlreadyClaimed
	Adopt(ctx context.Context, slug string, trialToken string, userID uuid.UUID) (models.Endpoint, error)

	// Hand over every endpoint owned by the trial token in one statement
	// Safe to re-run: already adopted endpoints are not matched again
	AdoptAll(ctx context.Context, trialToken string, userID uuid.UUID) (int64, error)

	// Delete the endpoint if it is owned by the user
	// If not found (or not owned) must return apperrors.ErrEndpointNotFound
	Delete(ctx context.Context, slug string, userID uuid.UUID) error
}

type Storage interface {
	User() UserRepo
	Token() TokenRepo
	Endpoint() EndpointRepo

	// Run fn within a db transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
