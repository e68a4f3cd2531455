package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/models"
)

type EndpointRepo struct {
	DB DBTX
}

const createEndpoint = `-- name: CreateEndpoint
INSERT INTO endpoints (id, slug, name, user_id, trial_token)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, slug, name, user_id, trial_token, created_at
`

// Create inserts the endpoint. The unique constraint on slug is the last
// line of defense for the allocator: losing the check-then-insert race
// surfaces as ErrSlugTaken instead of corrupting state.
func (r *EndpointRepo) Create(ctx context.Context, endpoint models.Endpoint) (models.Endpoint, error) {
	id := endpoint.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createEndpoint, id, endpoint.Slug, endpoint.Name, endpoint.UserID, endpoint.TrialToken)
	created, err := pgx.CollectOneRow(rows, rowToEndpoint)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, fmt.Errorf("repo error: %w", apperrors.ErrSlugTaken)
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getEndpointBySlug = `-- name: GetEndpointBySlug
SELECT id, slug, name, user_id, trial_token, created_at FROM endpoints
WHERE slug = $1
`

func (r *EndpointRepo) GetBySlug(ctx context.Context, slug string) (models.Endpoint, error) {
	rows, _ := r.DB.Query(ctx, getEndpointBySlug, slug)
	endpoint, err := pgx.CollectOneRow(rows, rowToEndpoint)

	switch {
	case err == nil:
		return endpoint, nil
	case errors.Is(err, pgx.ErrNoRows):
		return endpoint, fmt.Errorf("repo error: %w", apperrors.ErrEndpointNotFound)
	default:
		return endpoint, fmt.Errorf("db error: %w", err)
	}
}

const slugExists = `-- name: SlugExists
SELECT EXISTS (SELECT 1 FROM endpoints WHERE slug = $1)
`

func (r *EndpointRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, slugExists, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

const listEndpointsByUser = `-- name: ListEndpointsByUser
SELECT id, slug, name, user_id, trial_token, created_at FROM endpoints
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *EndpointRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Endpoint, error) {
	rows, _ := r.DB.Query(ctx, listEndpointsByUser, userID)
	endpoints, err := pgx.CollectRows(rows, rowToEndpoint)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return endpoints, nil
}

const listEndpointsByTrialToken = `-- name: ListEndpointsByTrialToken
SELECT id, slug, name, user_id, trial_token, created_at FROM endpoints
WHERE trial_token = $1
ORDER BY created_at DESC
`

func (r *EndpointRepo) ListByTrialToken(ctx context.Context, trialToken string) ([]models.Endpoint, error) {
	rows, _ := r.DB.Query(ctx, listEndpointsByTrialToken, trialToken)
	endpoints, err := pgx.CollectRows(rows, rowToEndpoint)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return endpoints, nil
}

const adoptEndpoint = `-- name: AdoptEndpoint
UPDATE endpoints
SET user_id = $3, trial_token = NULL
WHERE slug = $1 AND trial_token = $2
RETURNING id, slug, name, user_id, trial_token, created_at
`

// Adopt re-checks trial ownership inside the update itself: whichever of a
// racing claim and auto-link commits first wins, the loser matches no row.
func (r *EndpointRepo) Adopt(ctx context.Context, slug string, trialToken string, userID uuid.UUID) (models.Endpoint, error) {
	rows, _ := r.DB.Query(ctx, adoptEndpoint, slug, trialToken, userID)
	endpoint, err := pgx.CollectOneRow(rows, rowToEndpoint)

	switch {
	case err == nil:
		return endpoint, nil
	case errors.Is(err, pgx.ErrNoRows):
		return endpoint, fmt.Errorf("repo error: %w", apperrors.ErrEndpointAlreadyClaimed)
	default:
		return endpoint, fmt.Errorf("db error: %w", err)
	}
}

const adoptAllEndpoints = `-- name: AdoptAllEndpoints
UPDATE endpoints
SET user_id = $2, trial_token = NULL
WHERE trial_token = $1
`

func (r *EndpointRepo) AdoptAll(ctx context.Context, trialToken string, userID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, adoptAllEndpoints, trialToken, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteEndpoint = `-- name: DeleteEndpoint
DELETE FROM endpoints
WHERE slug = $1 AND user_id = $2
`

func (r *EndpointRepo) Delete(ctx context.Context, slug string, userID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteEndpoint, slug, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrEndpointNotFound)
	}
	return nil
}

func rowToEndpoint(row pgx.CollectableRow) (models.Endpoint, error) {
	var e models.Endpoint
	err := row.Scan(&e.ID, &e.Slug, &e.Name, &e.UserID, &e.TrialToken, &e.CreatedAt)
	return e, err
}
