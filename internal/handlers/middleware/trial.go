package middleware

import (
	"net/http"

	"github.com/smolentsev/hookbin/internal/handlers"
	"github.com/smolentsev/hookbin/internal/service/auth"
	"github.com/smolentsev/hookbin/internal/service/secrets"
)

type trialCookieSetter interface {
	SetTrialCookie(w http.ResponseWriter, value string)
}

// Trial establishes the anonymous trial identity: if the client carries no
// trial cookie yet a fresh token is set. An existing cookie is never
// regenerated, that would orphan the endpoints the visitor created with it.
func Trial(cookies trialCookieSetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			trialToken := auth.TrialFromRequest(r)

			if trialToken == "" {
				value, err := secrets.NewToken()
				if err != nil {
					// No usable trial identity, proceed anonymous-only
					next.ServeHTTP(w, r)
					return
				}
				trialToken = value
				cookies.SetTrialCookie(w, trialToken)
			}

			ctx := handlers.NewContextWithTrial(r.Context(), trialToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
