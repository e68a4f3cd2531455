package auth

import (
	"net/http"
	"time"
)

const (
	SessionCookieName = "session"
	TrialCookieName   = "trial_session"

	// Trial cookie lifetime is fixed, it is not slid like sessions are.
	TrialCookieTTL = 7 * 24 * time.Hour
)

// SetSessionCookie hands the session token to the client.
func (s *AuthService) SetSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFromRequest extracts the session token from the request cookie.
// The empty string means the client has no session at all.
func SessionFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetTrialCookie attaches the anonymous trial token to the client.
// Callers must only set it when the client does not carry one already:
// regenerating it would orphan every endpoint the visitor created so far.
func (s *AuthService) SetTrialCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TrialCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(TrialCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearTrialCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TrialCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// TrialFromRequest extracts the trial token from the request cookie.
func TrialFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(TrialCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
