package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/models"
	"github.com/smolentsev/hookbin/internal/service/secrets"
)

// CreateSession issues a fresh session token for the email.
// A user may hold several sessions at once, one per signed-in client.
func (s *AuthService) CreateSession(ctx context.Context, email string) (models.AuthToken, error) {
	value, err := secrets.NewToken()
	if err != nil {
		return models.AuthToken{}, fmt.Errorf("error while generating session token. Err: %w", err)
	}

	now := time.Now().Truncate(time.Second)
	session, err := s.tokenRepo.Save(ctx, models.AuthToken{
		Family:    models.FamilySession,
		Value:     value,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	})
	if err != nil {
		return models.AuthToken{}, fmt.Errorf("error while saving session token. Err: %w", err)
	}

	return session, nil
}

// ValidateAndSlide resolves the session token to its user and pushes the
// session expiry forward. A missing or expired session means the caller has
// to sign in again, nothing more specific is revealed.
func (s *AuthService) ValidateAndSlide(ctx context.Context, value string) (models.User, error) {
	token, err := s.tokenRepo.PeekRefresh(ctx, models.FamilySession, value, s.sessionTTL)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenInvalid) {
			return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
		}
		return models.User{}, err
	}

	user, err := s.userRepo.GetByEmail(ctx, token.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: session user is gone", apperrors.ErrUnauthenticated)
		}
		return models.User{}, err
	}

	return user, nil
}

// Revoke deletes the session. Revoking a missing or already revoked session
// is a no-op, logout never fails on a stale cookie.
func (s *AuthService) Revoke(ctx context.Context, value string) error {
	return s.tokenRepo.DeleteToken(ctx, models.FamilySession, value)
}
