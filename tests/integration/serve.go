// Package integration runs the full HTTP stack against a real database, with
// outgoing mail captured in memory so tests can follow the emailed links.
package integration

import (
	"context"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/smolentsev/hookbin/internal/handlers"
	"github.com/smolentsev/hookbin/internal/handlers/middleware"
	"github.com/smolentsev/hookbin/internal/logger"
	"github.com/smolentsev/hookbin/internal/repository/postgres"
	"github.com/smolentsev/hookbin/internal/service/auth"
	"github.com/smolentsev/hookbin/internal/service/claim"
	"github.com/smolentsev/hookbin/internal/service/endpoint"
	"github.com/smolentsev/hookbin/internal/testutil"
)

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]+)`)

// Mailbox captures outgoing mail instead of delivering it.
type Mailbox struct {
	mu   sync.Mutex
	sent []Mail
}

type Mail struct {
	To      string
	Subject string
	Body    string
}

func (m *Mailbox) Send(_ context.Context, to string, subject string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Mail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *Mailbox) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.sent...)
}

// LastToken extracts the token embedded in the link of the last sent mail.
func (m *Mailbox) LastToken(t *testing.T) string {
	t.Helper()

	sent := m.Sent()
	require.NotEmpty(t, sent, "expected at least one mail to be sent")

	match := tokenInLink.FindStringSubmatch(sent[len(sent)-1].Body)
	require.Len(t, match, 2, "mail body must embed a token link")
	return match[1]
}

type Services struct {
	AuthService     *auth.AuthService
	EndpointService *endpoint.EndpointService
	ClaimService    *claim.ClaimService
	Mailbox         *Mailbox
}

// ServeWithTx starts the whole router on a rolled back transaction: one
// connection, one transaction, nothing survives the test.
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(srvURL string, s Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		mailbox := &Mailbox{}

		authService, err := auth.NewService(auth.Config{BaseURL: "https://hookbin.test"}, mailbox, storage.Token(), storage.User())
		require.NoError(t, err, "auth service should be created without errors")

		endpointService := endpoint.NewService(storage.Endpoint())

		claimService, err := claim.NewService(claim.Config{BaseURL: "https://hookbin.test"}, mailbox, authService, storage.Token(), storage.User(), storage.Endpoint())
		require.NoError(t, err, "claim service should be created without errors")

		router := handlers.NewRouter(
			handlers.NewAuth(authService),
			handlers.NewEndpoint(endpointService),
			handlers.NewClaim(claimService, authService),
			handlers.Middlewares{
				RequireAuth:  middleware.Auth(authService),
				OptionalAuth: middleware.OptionalAuth(authService),
				Trial:        middleware.Trial(authService),
				AccessLog:    middleware.Logger(logger.NewNoOpLogger()),
			},
		)

		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(srv.URL, Services{
			AuthService:     authService,
			EndpointService: endpointService,
			ClaimService:    claimService,
			Mailbox:         mailbox,
		})
	})
}
