package middleware

import (
	"context"
	"net/http"

	"github.com/smolentsev/hookbin/internal/handlers"
	"github.com/smolentsev/hookbin/internal/handlers/render"
	"github.com/smolentsev/hookbin/internal/models"
	"github.com/smolentsev/hookbin/internal/service/auth"
)

type sessionManager interface {
	// Resolve the session token to its user, sliding the session expiry.
	// Has to return apperrors.ErrUnauthenticated if the session is gone
	ValidateAndSlide(ctx context.Context, value string) (models.User, error)

	// Re-issue the session cookie with a full lifetime
	SetSessionCookie(w http.ResponseWriter, value string)
}

// Auth requires a valid session: the session cookie is extracted here and
// passed to the service as an explicit value, never read downstream.
// On success the cookie is set again, so the client side lifetime slides
// together with the server side expiry.
func Auth(sessions sessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value := auth.SessionFromRequest(r)
			if value == "" {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := sessions.ValidateAndSlide(r.Context(), value)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			sessions.SetSessionCookie(w, value)

			ctx := handlers.NewContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth populates the user when a valid session is present but lets
// anonymous requests through. Used on routes trial visitors may call.
// A validated cookie is re-issued here too, same as in Auth.
func OptionalAuth(sessions sessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if value := auth.SessionFromRequest(r); value != "" {
				if user, err := sessions.ValidateAndSlide(r.Context(), value); err == nil {
					sessions.SetSessionCookie(w, value)
					r = r.WithContext(handlers.NewContextWithUser(r.Context(), user))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
