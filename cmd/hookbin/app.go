package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/smolentsev/hookbin/internal/db"
	"github.com/smolentsev/hookbin/internal/handlers"
	"github.com/smolentsev/hookbin/internal/handlers/middleware"
	"github.com/smolentsev/hookbin/internal/logger"
	"github.com/smolentsev/hookbin/internal/repository"
	"github.com/smolentsev/hookbin/internal/repository/postgres"
	"github.com/smolentsev/hookbin/internal/service/auth"
	"github.com/smolentsev/hookbin/internal/service/claim"
	"github.com/smolentsev/hookbin/internal/service/endpoint"
	"github.com/smolentsev/hookbin/internal/service/mailer"
)

// Expired token rows are reclaimed on this cadence. Reads never depend on
// it, every read path re-checks expiry itself.
const tokenCleanupInterval = time.Hour

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	storage repository.Storage
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize mail delivery: real SMTP when configured, log otherwise
	var mail mailer.Mailer
	if c.SMTPAddr != "" {
		mail = mailer.NewSMTP(mailer.SMTPConfig{
			Addr:     c.SMTPAddr,
			From:     c.SMTPFrom,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
		})
	} else {
		log.Warn("SMTP is not configured, outgoing mail goes to the log")
		mail = mailer.NewLog(log)
	}

	// Initialize services
	authService, err := auth.NewService(auth.Config{
		BaseURL:       c.BaseURL,
		SecureCookies: c.Environment == logger.EnvProduction,
	}, mail, storage.Token(), storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	endpointService := endpoint.NewService(storage.Endpoint())

	claimService, err := claim.NewService(
		claim.Config{BaseURL: c.BaseURL},
		mail,
		authService,
		storage.Token(),
		storage.User(),
		storage.Endpoint(),
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating claim service. Err: %w", err)
	}

	// Initialize handlers and router
	mux := handlers.NewRouter(
		handlers.NewAuth(authService),
		handlers.NewEndpoint(endpointService),
		handlers.NewClaim(claimService, authService),
		handlers.Middlewares{
			RequireAuth:  middleware.Auth(authService),
			OptionalAuth: middleware.OptionalAuth(authService),
			Trial:        middleware.Trial(authService),
			AccessLog:    middleware.Logger(log),
		},
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
		storage:    storage,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go s.runTokenCleanup(srvCtx)

	idleConnsClosed := make(chan struct{})
	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}

// runTokenCleanup periodically removes expired token rows until ctx is done.
func (s *ServerApp) runTokenCleanup(ctx context.Context) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.storage.Token().DeleteExpired(ctx)
			if err != nil {
				s.logger.Error("token cleanup failed", "error", err.Error())
				continue
			}
			if removed > 0 {
				s.logger.Info("expired tokens removed", "count", removed)
			}
		}
	}
}
