package auth

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smolentsev/hookbin/internal/testutil"
	"github.com/smolentsev/hookbin/tests/integration"
)

const (
	LoginURL  = "/auth/login"
	RedeemURL = "/auth/redeem"
	LogoutURL = "/auth/logout"
	MeURL     = "/auth/me"
)

// newClient returns a client that keeps cookies and does not follow
// redirects, so redirect responses can be asserted directly.
func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return string(body)
}

func Test_MagicLinkFlow(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("request login sends the link", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			data := `{"email": "User@Example.COM"}`
			resp, err := http.Post(srvURL+LoginURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"message": "Sign-in link sent"
				}`, body)

			sent := s.Mailbox.Sent()
			require.Len(t, sent, 1)
			require.Equal(t, "user@example.com", sent[0].To, "address should be normalized")
			require.Contains(t, sent[0].Body, "https://hookbin.test/auth/redeem?token=")
		})
	})

	t.Run("malformed email is rejected", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			data := `{"email": "not-an-address"}`
			resp, err := http.Post(srvURL+LoginURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "validation_failed",
					"message": "Request validation failed",
					"fields": {"email": "Must be a valid email address"}
				}`, body)
			require.Empty(t, s.Mailbox.Sent(), "no mail should be sent for rejected addresses")
		})
	})

	t.Run("redeem signs in and the session works", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			client := newClient(t)

			data := `{"email": "user@example.com"}`
			resp, err := client.Post(srvURL+LoginURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			_ = readBody(t, resp)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			resp, err = client.Get(srvURL + RedeemURL + "?token=" + url.QueryEscape(s.Mailbox.LastToken(t)))
			require.NoError(t, err)
			_ = readBody(t, resp)

			require.Equal(t, http.StatusSeeOther, resp.StatusCode)
			require.Equal(t, "/", resp.Header.Get("Location"))

			var session *http.Cookie
			for _, c := range resp.Cookies() {
				if c.Name == "session" {
					session = c
				}
			}
			require.NotNil(t, session, "session cookie should be set on redemption")
			require.NotEmpty(t, session.Value)
			require.True(t, session.HttpOnly, "session cookie should be HttpOnly")
			require.Equal(t, "/", session.Path)
			require.Equal(t, http.SameSiteLaxMode, session.SameSite)

			resp, err = client.Get(srvURL + MeURL)
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"email": "user@example.com"
				}`, body)

			// Every validated request renews the cookie with a full lifetime,
			// the client side expiry slides together with the server side one
			var renewed *http.Cookie
			for _, c := range resp.Cookies() {
				if c.Name == "session" {
					renewed = c
				}
			}
			require.NotNil(t, renewed, "a validated request should re-issue the session cookie")
			require.Equal(t, session.Value, renewed.Value)
			require.InDelta(t, (7 * 24 * time.Hour).Seconds(), renewed.MaxAge, 1, "max age should be the full session TTL again")
		})
	})

	t.Run("link works exactly once", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			client := newClient(t)

			data := `{"email": "user@example.com"}`
			resp, err := client.Post(srvURL+LoginURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			_ = readBody(t, resp)

			link := srvURL + RedeemURL + "?token=" + url.QueryEscape(s.Mailbox.LastToken(t))

			resp, err = client.Get(link)
			require.NoError(t, err)
			_ = readBody(t, resp)
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)

			resp, err = newClient(t).Get(link)
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid or expired link"
				}`, body)
			require.Empty(t, resp.Cookies(), "no session should be issued for a used link")
		})
	})

	t.Run("unknown token is rejected the same way", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(srvURL string, _ integration.Services) {
			resp, err := http.Get(srvURL + RedeemURL + "?token=0000000000000000000000000000000000000000000000000000000000000000")
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid or expired link"
				}`, body)
		})
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			client := newClient(t)

			data := `{"email": "user@example.com"}`
			resp, err := client.Post(srvURL+LoginURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			_ = readBody(t, resp)

			resp, err = client.Get(srvURL + RedeemURL + "?token=" + url.QueryEscape(s.Mailbox.LastToken(t)))
			require.NoError(t, err)
			_ = readBody(t, resp)
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)

			resp, err = client.Post(srvURL+LogoutURL, "application/json", nil)
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"message": "Signed out"
				}`, body)

			resp, err = client.Get(srvURL + MeURL)
			require.NoError(t, err)
			_ = readBody(t, resp)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "the revoked session should not work anymore")
		})
	})

	t.Run("me without a session is unauthorized", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(srvURL string, _ integration.Services) {
			resp, err := http.Get(srvURL + MeURL)
			require.NoError(t, err)
			_ = readBody(t, resp)

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	})
}
