package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/models"
)

type TokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveToken
INSERT INTO auth_tokens (family, token, email, endpoint_slug, trial_token, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING family, token, email, endpoint_slug, trial_token, created_at, expires_at
`

func (r *TokenRepo) Save(ctx context.Context, token models.AuthToken) (models.AuthToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken,
		token.Family,
		token.Value,
		token.Email,
		nullIfEmpty(token.EndpointSlug),
		nullIfEmpty(token.TrialToken),
		token.CreatedAt,
		token.ExpiresAt,
	)
	saved, err := pgx.CollectOneRow(rows, rowToToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const takeValidToken = `-- name: TakeValidToken
DELETE FROM auth_tokens
WHERE family = $1 AND token = $2 AND expires_at > $3
RETURNING family, token, email, endpoint_slug, trial_token, created_at, expires_at
`

// TakeValid deletes and returns the token in a single statement, so two
// concurrent redemptions can never both succeed. An expired row is not
// matched even if physical cleanup has not removed it yet.
func (r *TokenRepo) TakeValid(ctx context.Context, family models.TokenFamily, value string) (models.AuthToken, error) {
	rows, _ := r.DB.Query(ctx, takeValidToken, family, value, time.Now())
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenInvalid)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const peekRefreshToken = `-- name: PeekRefreshToken
UPDATE auth_tokens
SET expires_at = GREATEST(expires_at, $4)
WHERE family = $1 AND token = $2 AND expires_at > $3
RETURNING family, token, email, endpoint_slug, trial_token, created_at, expires_at
`

// PeekRefresh returns the token and slides its expiry to now+ttl in a single
// statement. GREATEST keeps the expiry monotonic when requests race.
func (r *TokenRepo) PeekRefresh(ctx context.Context, family models.TokenFamily, value string, ttl time.Duration) (models.AuthToken, error) {
	now := time.Now()
	rows, _ := r.DB.Query(ctx, peekRefreshToken, family, value, now, now.Add(ttl))
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenInvalid)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteToken = `-- name: DeleteToken
DELETE FROM auth_tokens
WHERE family = $1 AND token = $2
`

func (r *TokenRepo) DeleteToken(ctx context.Context, family models.TokenFamily, value string) error {
	_, err := r.DB.Exec(ctx, deleteToken, family, value)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteTokensByEndpoint = `-- name: DeleteTokensByEndpoint
DELETE FROM auth_tokens
WHERE family = $1 AND endpoint_slug = $2
`

func (r *TokenRepo) DeleteByEndpoint(ctx context.Context, family models.TokenFamily, slug string) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteTokensByEndpoint, family, slug)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteTokensByTrialToken = `-- name: DeleteTokensByTrialToken
DELETE FROM auth_tokens
WHERE family = $1 AND trial_token = $2
`

func (r *TokenRepo) DeleteByTrialToken(ctx context.Context, family models.TokenFamily, trialToken string) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteTokensByTrialToken, family, trialToken)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteExpiredTokens = `-- name: DeleteExpiredTokens
DELETE FROM auth_tokens
WHERE expires_at <= $1
`

func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredTokens, time.Now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToToken(row pgx.CollectableRow) (models.AuthToken, error) {
	var t models.AuthToken
	var slug, trial *string
	err := row.Scan(&t.Family, &t.Value, &t.Email, &slug, &trial, &t.CreatedAt, &t.ExpiresAt)
	if slug != nil {
		t.EndpointSlug = *slug
	}
	if trial != nil {
		t.TrialToken = *trial
	}
	return t, err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
