// Package claim converts anonymous trial endpoints into user owned ones:
// either one endpoint through an emailed claim link, or everything a trial
// token owns at once after sign-in.
package claim

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/models"
	"github.com/smolentsev/hookbin/internal/repository"
	"github.com/smolentsev/hookbin/internal/service/endpoint"
	"github.com/smolentsev/hookbin/internal/service/mailer"
	"github.com/smolentsev/hookbin/internal/service/secrets"
	"github.com/smolentsev/hookbin/internal/service/validate"
)

const (
	defaultClaimTokenTTL = 15 * time.Minute

	claimMailSubject = "Claim your hookbin endpoint"
)

// SessionManager issues sessions for claimants. Implemented by auth.AuthService.
type SessionManager interface {
	CreateSession(ctx context.Context, email string) (models.AuthToken, error)
}

type Config struct {
	// BaseURL is the public origin claim links are built against
	// Required to be set
	BaseURL string

	// Claim token lifetime
	// If not set the default is used
	ClaimTokenTTL time.Duration
}

type ClaimService struct {
	baseURL       string
	claimTokenTTL time.Duration

	mailer       mailer.Mailer
	sessions     SessionManager
	tokenRepo    repository.TokenRepo
	userRepo     repository.UserRepo
	endpointRepo repository.EndpointRepo
}

func NewService(cfg Config, m mailer.Mailer, sessions SessionManager, tokenRepo repository.TokenRepo, userRepo repository.UserRepo, endpointRepo repository.EndpointRepo) (*ClaimService, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL must not be empty")
	}
	if m == nil || sessions == nil {
		return nil, errors.New("mailer and session manager must not be nil")
	}
	if tokenRepo == nil || userRepo == nil || endpointRepo == nil {
		return nil, errors.New("repos must not be nil")
	}

	if cfg.ClaimTokenTTL == 0 {
		cfg.ClaimTokenTTL = defaultClaimTokenTTL
	}

	return &ClaimService{
		baseURL:       cfg.BaseURL,
		claimTokenTTL: cfg.ClaimTokenTTL,
		mailer:        m,
		sessions:      sessions,
		tokenRepo:     tokenRepo,
		userRepo:      userRepo,
		endpointRepo:  endpointRepo,
	}, nil
}

// RequestClaim issues a claim token binding the email, the endpoint and the
// trial token that owns it, and mails a link embedding the token.
func (s *ClaimService) RequestClaim(ctx context.Context, email string, slug string, trialToken string) error {
	email = validate.NormalizeEmail(email)
	if err := validate.Email(email); err != nil {
		return err
	}

	if err := s.verifyTrialOwnership(ctx, slug, trialToken); err != nil {
		return err
	}

	value, err := secrets.NewToken()
	if err != nil {
		return fmt.Errorf("error while generating claim token. Err: %w", err)
	}

	now := time.Now().Truncate(time.Second)
	_, err = s.tokenRepo.Save(ctx, models.AuthToken{
		Family:       models.FamilyClaim,
		Value:        value,
		Email:        email,
		EndpointSlug: slug,
		TrialToken:   trialToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.claimTokenTTL),
	})
	if err != nil {
		return fmt.Errorf("error while saving claim token. Err: %w", err)
	}

	link := s.buildLink(value)
	body := fmt.Sprintf("Follow this link to keep your hookbin endpoint %s:\r\n\r\n%s\r\n\r\nThe link is valid for %s and can be used once.", slug, link, s.claimTokenTTL)

	if err := s.mailer.Send(ctx, email, claimMailSubject, body); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrMailDelivery, err)
	}

	return nil
}

// Result of a successful claim redemption.
type Result struct {
	User     models.User
	Session  models.AuthToken
	Endpoint models.Endpoint
}

// RedeemClaim consumes the claim token and hands the endpoint over to the
// claimant. Trial ownership is re-checked at adoption time, not just at
// request time: if an auto-link or another claim got there first the update
// matches nothing and the redemption fails with ErrEndpointAlreadyClaimed.
func (s *ClaimService) RedeemClaim(ctx context.Context, value string) (Result, error) {
	token, err := s.tokenRepo.TakeValid(ctx, models.FamilyClaim, value)
	if err != nil {
		return Result{}, err
	}

	user, err := s.userRepo.GetOrCreateByEmail(ctx, token.Email)
	if err != nil {
		return Result{}, fmt.Errorf("error while ensuring user. Err: %w", err)
	}

	adopted, err := s.endpointRepo.Adopt(ctx, token.EndpointSlug, token.TrialToken, user.ID)
	if err != nil {
		return Result{}, err
	}

	// Sibling claim links for this endpoint are dead now, discard them
	// instead of letting them linger until their TTL
	if _, err := s.tokenRepo.DeleteByEndpoint(ctx, models.FamilyClaim, adopted.Slug); err != nil {
		return Result{}, fmt.Errorf("error while discarding stale claim tokens. Err: %w", err)
	}

	session, err := s.sessions.CreateSession(ctx, user.Email)
	if err != nil {
		return Result{}, err
	}

	return Result{User: user, Session: session, Endpoint: adopted}, nil
}

// AutoLinkAll hands every endpoint still owned by the trial token over to the
// user in one bulk statement. Re-running it is safe: adopted endpoints carry
// no trial token anymore and are not matched again.
func (s *ClaimService) AutoLinkAll(ctx context.Context, trialToken string, user models.User) (int64, error) {
	if trialToken == "" {
		return 0, nil
	}

	linked, err := s.endpointRepo.AdoptAll(ctx, trialToken, user.ID)
	if err != nil {
		return 0, fmt.Errorf("error while linking trial endpoints. Err: %w", err)
	}

	// The trial identity owns nothing anymore, its pending claim links are
	// all stale
	if _, err := s.tokenRepo.DeleteByTrialToken(ctx, models.FamilyClaim, trialToken); err != nil {
		return 0, fmt.Errorf("error while discarding stale claim tokens. Err: %w", err)
	}

	return linked, nil
}

func (s *ClaimService) verifyTrialOwnership(ctx context.Context, slug string, trialToken string) error {
	if trialToken == "" || !endpoint.ValidSlug(slug) {
		return fmt.Errorf("missing trial identity or malformed slug: %w", apperrors.ErrEndpointNotOwned)
	}

	ep, err := s.endpointRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, apperrors.ErrEndpointNotFound) {
			return fmt.Errorf("%w: %w", apperrors.ErrEndpointNotOwned, err)
		}
		return err
	}

	if ep.TrialToken == nil || *ep.TrialToken != trialToken {
		return fmt.Errorf("endpoint %s: %w", slug, apperrors.ErrEndpointNotOwned)
	}

	return nil
}

func (s *ClaimService) buildLink(token string) string {
	q := url.Values{"token": {token}}
	return s.baseURL + "/claims/redeem?" + q.Encode()
}
