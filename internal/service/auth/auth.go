// Package auth implements passwordless sign-in: it issues single-use
// magic-link tokens bound to an email address and redeems them into
// sliding server side sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/models"
	"github.com/smolentsev/hookbin/internal/repository"
	"github.com/smolentsev/hookbin/internal/service/mailer"
	"github.com/smolentsev/hookbin/internal/service/secrets"
	"github.com/smolentsev/hookbin/internal/service/validate"
)

const (
	defaultLoginTokenTTL = 15 * time.Minute
	defaultSessionTTL    = 7 * 24 * time.Hour

	loginMailSubject = "Your hookbin sign-in link"
)

type Config struct {
	// BaseURL is the public origin links are built against, e.g. https://hookbin.dev
	// Required to be set
	BaseURL string

	// Token lifetimes
	// If not set the defaults are used
	LoginTokenTTL time.Duration
	SessionTTL    time.Duration

	// SecureCookies marks issued cookies Secure. Enable in production.
	SecureCookies bool
}

type AuthService struct {
	baseURL       string
	loginTokenTTL time.Duration
	sessionTTL    time.Duration
	secureCookies bool

	mailer    mailer.Mailer
	tokenRepo repository.TokenRepo
	userRepo  repository.UserRepo
}

func NewService(cfg Config, m mailer.Mailer, tokenRepo repository.TokenRepo, userRepo repository.UserRepo) (*AuthService, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL must not be empty")
	}
	if m == nil {
		return nil, errors.New("mailer must not be nil")
	}
	if tokenRepo == nil || userRepo == nil {
		return nil, errors.New("repos must not be nil")
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.LoginTokenTTL, defaultLoginTokenTTL)
	setDefaultDuration(&cfg.SessionTTL, defaultSessionTTL)

	return &AuthService{
		baseURL:       cfg.BaseURL,
		loginTokenTTL: cfg.LoginTokenTTL,
		sessionTTL:    cfg.SessionTTL,
		secureCookies: cfg.SecureCookies,
		mailer:        m,
		tokenRepo:     tokenRepo,
		userRepo:      userRepo,
	}, nil
}

// RequestLogin stores a single-use login token for the address and mails a
// link embedding it. If delivery fails the token is left in place: it is
// harmless unredeemed and expires on its own.
func (s *AuthService) RequestLogin(ctx context.Context, email string) error {
	email = validate.NormalizeEmail(email)
	if err := validate.Email(email); err != nil {
		return err
	}

	value, err := secrets.NewToken()
	if err != nil {
		return fmt.Errorf("error while generating login token. Err: %w", err)
	}

	now := time.Now().Truncate(time.Second)
	_, err = s.tokenRepo.Save(ctx, models.AuthToken{
		Family:    models.FamilyLogin,
		Value:     value,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.loginTokenTTL),
	})
	if err != nil {
		return fmt.Errorf("error while saving login token. Err: %w", err)
	}

	link := s.buildLink("/auth/redeem", value)
	body := fmt.Sprintf("Follow this link to sign in to hookbin:\r\n\r\n%s\r\n\r\nThe link is valid for %s and can be used once.", link, s.loginTokenTTL)

	if err := s.mailer.Send(ctx, email, loginMailSubject, body); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrMailDelivery, err)
	}

	return nil
}

// Redeem consumes the login token and signs its email in. A second redemption
// of the same value fails exactly like a token that never existed.
func (s *AuthService) Redeem(ctx context.Context, value string) (models.AuthToken, models.User, error) {
	token, err := s.tokenRepo.TakeValid(ctx, models.FamilyLogin, value)
	if err != nil {
		return models.AuthToken{}, models.User{}, err
	}

	user, err := s.userRepo.GetOrCreateByEmail(ctx, token.Email)
	if err != nil {
		return models.AuthToken{}, models.User{}, fmt.Errorf("error while ensuring user. Err: %w", err)
	}

	session, err := s.CreateSession(ctx, user.Email)
	if err != nil {
		return models.AuthToken{}, models.User{}, err
	}

	return session, user, nil
}

func (s *AuthService) buildLink(path string, token string) string {
	q := url.Values{"token": {token}}
	return s.baseURL + path + "?" + q.Encode()
}
