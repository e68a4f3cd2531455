package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/handlers/render"
	"github.com/smolentsev/hookbin/internal/models"
	"github.com/smolentsev/hookbin/internal/service/claim"
)

type claimService interface {
	// Issue a claim token for the endpoint and mail the claim link
	// Has to return apperrors.ErrEndpointNotOwned if the trial token does
	// not own the endpoint
	RequestClaim(ctx context.Context, email string, slug string, trialToken string) error

	// Redeem the claim token, adopting the endpoint and signing its new
	// owner in
	RedeemClaim(ctx context.Context, value string) (claim.Result, error)

	// Hand all endpoints of the trial token over to the user
	AutoLinkAll(ctx context.Context, trialToken string, user models.User) (int64, error)
}

type claimCookies interface {
	SetSessionCookie(w http.ResponseWriter, value string)
	ClearTrialCookie(w http.ResponseWriter)
}

type ClaimHandler struct {
	claimService claimService
	cookies      claimCookies
}

func NewClaim(s claimService, cookies claimCookies) *ClaimHandler {
	return &ClaimHandler{claimService: s, cookies: cookies}
}

func (h *ClaimHandler) requestClaim(w http.ResponseWriter, r *http.Request) {
	type ClaimRequest struct {
		Email string `json:"email" validate:"required,email_addr"`
		Slug  string `json:"slug" validate:"required,endpoint_slug"`
	}
	type ClaimSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ClaimRequest](w, r)
	if err != nil {
		return
	}

	trialToken, ok := TrialFromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Endpoint not found", http.StatusNotFound)
		return
	}

	err = h.claimService.RequestClaim(r.Context(), data.Email, data.Slug, trialToken)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidEmail):
			render.ServiceError(w, "Email address is not valid", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrEndpointNotOwned):
			// Generic wording: do not reveal whether the endpoint exists
			render.ServiceError(w, "Endpoint not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrMailDelivery):
			render.ServiceError(w, "Could not send the claim email, try again", http.StatusBadGateway)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ClaimSuccessResponse{Message: "Claim link sent"})
}

func (h *ClaimHandler) redeemClaim(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("token")
	if value == "" {
		render.ServiceError(w, "Invalid or expired link", http.StatusUnauthorized)
		return
	}

	result, err := h.claimService.RedeemClaim(r.Context(), value)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrTokenInvalid):
			render.ServiceError(w, "Invalid or expired link", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrEndpointAlreadyClaimed):
			render.ServiceError(w, "Endpoint is already claimed", http.StatusConflict)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.cookies.SetSessionCookie(w, result.Session.Value)
	h.cookies.ClearTrialCookie(w)
	http.Redirect(w, r, "/endpoints/"+result.Endpoint.Slug, http.StatusSeeOther)
}

func (h *ClaimHandler) autoLink(w http.ResponseWriter, r *http.Request) {
	type AutoLinkResponse struct {
		Linked int64 `json:"linked"`
	}

	user, ok := UserFromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// No trial cookie means nothing to link, not an error
	trialToken, _ := TrialFromContext(r.Context())

	linked, err := h.claimService.AutoLinkAll(r.Context(), trialToken, user)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.cookies.ClearTrialCookie(w)
	render.JSON(w, AutoLinkResponse{Linked: linked})
}
