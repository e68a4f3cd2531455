package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/handlers/render"
	"github.com/smolentsev/hookbin/internal/models"
	"github.com/smolentsev/hookbin/internal/service/auth"
)

type authService interface {
	// Issue a login token and mail the magic link
	// Has to return apperrors.ErrInvalidEmail on malformed input and
	// apperrors.ErrMailDelivery if the mail could not be sent
	RequestLogin(ctx context.Context, email string) error

	// Redeem login token into a session
	// Has to return apperrors.ErrTokenInvalid for absent, used and expired
	// tokens alike
	Redeem(ctx context.Context, value string) (models.AuthToken, models.User, error)

	// Delete session. Idempotent
	Revoke(ctx context.Context, value string) error

	SetSessionCookie(w http.ResponseWriter, value string)
	ClearSessionCookie(w http.ResponseWriter)
}

type AuthHandler struct {
	authService authService
}

func NewAuth(s authService) *AuthHandler {
	return &AuthHandler{authService: s}
}

func (h *AuthHandler) requestLogin(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email string `json:"email" validate:"required,email_addr"`
	}
	type LoginSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	err = h.authService.RequestLogin(r.Context(), data.Email)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidEmail):
			render.ServiceError(w, "Email address is not valid", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrMailDelivery):
			render.ServiceError(w, "Could not send the sign-in email, try again", http.StatusBadGateway)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, LoginSuccessResponse{Message: "Sign-in link sent"})
}

func (h *AuthHandler) redeem(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("token")
	if value == "" {
		render.ServiceError(w, "Invalid or expired link", http.StatusUnauthorized)
		return
	}

	session, _, err := h.authService.Redeem(r.Context(), value)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrTokenInvalid):
			// Same response whether the token never existed or was already
			// used, the difference stays server side
			render.ServiceError(w, "Invalid or expired link", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.authService.SetSessionCookie(w, session.Value)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type LogoutSuccessResponse struct {
		Message string `json:"message"`
	}

	if value := auth.SessionFromRequest(r); value != "" {
		if err := h.authService.Revoke(r.Context(), value); err != nil {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	h.authService.ClearSessionCookie(w)
	render.JSON(w, LogoutSuccessResponse{Message: "Signed out"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	type MeResponse struct {
		Email string `json:"email"`
	}

	user, ok := UserFromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	render.JSON(w, MeResponse{Email: user.Email})
}
