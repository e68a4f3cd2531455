package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/handlers/render"
	"github.com/smolentsev/hookbin/internal/models"
)

type endpointService interface {
	CreateForUser(ctx context.Context, name string, userID uuid.UUID) (models.Endpoint, error)
	CreateForTrial(ctx context.Context, name string, trialToken string) (models.Endpoint, error)
	Get(ctx context.Context, slug string) (models.Endpoint, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Endpoint, error)
	ListForTrial(ctx context.Context, trialToken string) ([]models.Endpoint, error)
	Delete(ctx context.Context, slug string, userID uuid.UUID) error
}

type EndpointHandler struct {
	endpointService endpointService
}

func NewEndpoint(s endpointService) *EndpointHandler {
	return &EndpointHandler{endpointService: s}
}

type EndpointResponse struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Claimed   bool      `json:"claimed"`
	CreatedAt time.Time `json:"created_at"`
}

func toEndpointResponse(e models.Endpoint) EndpointResponse {
	return EndpointResponse{
		Slug:      e.Slug,
		Name:      e.Name,
		Claimed:   e.Claimed(),
		CreatedAt: e.CreatedAt,
	}
}

func (h *EndpointHandler) create(w http.ResponseWriter, r *http.Request) {
	type CreateRequest struct {
		Name string `json:"name" validate:"omitempty,max=120"`
	}

	data, err := render.BindAndValidate[CreateRequest](w, r)
	if err != nil {
		return
	}

	var created models.Endpoint
	if user, ok := UserFromContext(r.Context()); ok {
		created, err = h.endpointService.CreateForUser(r.Context(), data.Name, user.ID)
	} else if trialToken, ok := TrialFromContext(r.Context()); ok {
		created, err = h.endpointService.CreateForTrial(r.Context(), data.Name, trialToken)
	} else {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSONWithStatus(w, toEndpointResponse(created), http.StatusCreated)
}

func (h *EndpointHandler) list(w http.ResponseWriter, r *http.Request) {
	var endpoints []models.Endpoint
	var err error

	if user, ok := UserFromContext(r.Context()); ok {
		endpoints, err = h.endpointService.ListForUser(r.Context(), user.ID)
	} else if trialToken, ok := TrialFromContext(r.Context()); ok {
		endpoints, err = h.endpointService.ListForTrial(r.Context(), trialToken)
	} else {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]EndpointResponse, 0, len(endpoints))
	for _, e := range endpoints {
		response = append(response, toEndpointResponse(e))
	}

	render.JSON(w, response)
}

func (h *EndpointHandler) get(w http.ResponseWriter, r *http.Request) {
	endpoint, err := h.endpointService.Get(r.Context(), r.PathValue("slug"))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEndpointNotFound):
			render.ServiceError(w, "Endpoint not found", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, toEndpointResponse(endpoint))
}

func (h *EndpointHandler) delete(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	err := h.endpointService.Delete(r.Context(), r.PathValue("slug"), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEndpointNotFound):
			render.ServiceError(w, "Endpoint not found", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
