// Package endpoint manages webhook endpoints and the allocation of their
// public slugs.
package endpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/models"
	"github.com/smolentsev/hookbin/internal/repository"
)

// maxSlugAttempts bounds the allocate loop. Exhausting it means something is
// wrong well beyond bad luck, so it surfaces as a server error.
const maxSlugAttempts = 20

type EndpointService struct {
	endpointRepo repository.EndpointRepo
}

func NewService(endpointRepo repository.EndpointRepo) *EndpointService {
	return &EndpointService{endpointRepo: endpointRepo}
}

// CreateForUser creates an endpoint owned by the user.
func (s *EndpointService) CreateForUser(ctx context.Context, name string, userID uuid.UUID) (models.Endpoint, error) {
	return s.create(ctx, models.Endpoint{Name: name, UserID: &userID})
}

// CreateForTrial creates an endpoint owned by the anonymous trial token.
func (s *EndpointService) CreateForTrial(ctx context.Context, name string, trialToken string) (models.Endpoint, error) {
	if trialToken == "" {
		return models.Endpoint{}, errors.New("trial token must not be empty")
	}
	return s.create(ctx, models.Endpoint{Name: name, TrialToken: &trialToken})
}

// create allocates a slug and inserts the endpoint. The existence check and
// the insert race by design: the unique constraint on slug turns a lost race
// into ErrSlugTaken, which just costs the loop another attempt.
func (s *EndpointService) create(ctx context.Context, endpoint models.Endpoint) (models.Endpoint, error) {
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug, err := NewSlug()
		if err != nil {
			return models.Endpoint{}, err
		}

		exists, err := s.endpointRepo.SlugExists(ctx, slug)
		if err != nil {
			return models.Endpoint{}, err
		}
		if exists {
			continue
		}

		endpoint.Slug = slug
		created, err := s.endpointRepo.Create(ctx, endpoint)
		if errors.Is(err, apperrors.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return models.Endpoint{}, err
		}

		return created, nil
	}

	return models.Endpoint{}, fmt.Errorf("no free slug after %d attempts: %w", maxSlugAttempts, apperrors.ErrAllocationExhausted)
}

// Get returns the endpoint by its public slug.
func (s *EndpointService) Get(ctx context.Context, slug string) (models.Endpoint, error) {
	if !ValidSlug(slug) {
		return models.Endpoint{}, fmt.Errorf("malformed slug: %w", apperrors.ErrEndpointNotFound)
	}
	return s.endpointRepo.GetBySlug(ctx, slug)
}

func (s *EndpointService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Endpoint, error) {
	return s.endpointRepo.ListByUser(ctx, userID)
}

func (s *EndpointService) ListForTrial(ctx context.Context, trialToken string) ([]models.Endpoint, error) {
	if trialToken == "" {
		return nil, nil
	}
	return s.endpointRepo.ListByTrialToken(ctx, trialToken)
}

// Delete removes the endpoint if the user owns it.
func (s *EndpointService) Delete(ctx context.Context, slug string, userID uuid.UUID) error {
	if !ValidSlug(slug) {
		return fmt.Errorf("malformed slug: %w", apperrors.ErrEndpointNotFound)
	}
	return s.endpointRepo.Delete(ctx, slug, userID)
}
