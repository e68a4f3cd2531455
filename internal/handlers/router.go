package handlers

import (
	"net/http"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Middlewares used by the router, in one place to keep the signature readable.
type Middlewares struct {
	// RequireAuth rejects requests without a valid session
	RequireAuth func(http.Handler) http.Handler

	// OptionalAuth resolves the session when present, lets anonymous through
	OptionalAuth func(http.Handler) http.Handler

	// Trial establishes the anonymous trial identity cookie and context
	Trial func(http.Handler) http.Handler

	// AccessLog logs every request
	AccessLog func(http.Handler) http.Handler
}

func NewRouter(
	authHandler *AuthHandler,
	endpointHandler *EndpointHandler,
	claimHandler *ClaimHandler,
	mw Middlewares,
) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /auth/login", http.HandlerFunc(authHandler.requestLogin))
	mux.Handle("GET /auth/redeem", http.HandlerFunc(authHandler.redeem))
	mux.Handle("POST /auth/logout", http.HandlerFunc(authHandler.logout))
	mux.Handle("GET /auth/me", chain(http.HandlerFunc(authHandler.me), mw.RequireAuth))

	// Create and list work for signed-in users and trial visitors alike
	mux.Handle("POST /endpoints", chain(http.HandlerFunc(endpointHandler.create), mw.Trial, mw.OptionalAuth))
	mux.Handle("GET /endpoints", chain(http.HandlerFunc(endpointHandler.list), mw.Trial, mw.OptionalAuth))
	mux.Handle("GET /endpoints/{slug}", http.HandlerFunc(endpointHandler.get))
	mux.Handle("DELETE /endpoints/{slug}", chain(http.HandlerFunc(endpointHandler.delete), mw.RequireAuth))

	mux.Handle("POST /claims", chain(http.HandlerFunc(claimHandler.requestClaim), mw.Trial))
	mux.Handle("GET /claims/redeem", http.HandlerFunc(claimHandler.redeemClaim))
	mux.Handle("POST /claims/autolink", chain(http.HandlerFunc(claimHandler.autoLink), mw.Trial, mw.RequireAuth))

	return chain(mux, mw.AccessLog)
}
