package handlers

import (
	"context"

	"github.com/smolentsev/hookbin/internal/models"
)

type ctxKey string

const (
	userKey  ctxKey = "user"
	trialKey ctxKey = "trial"
)

func NewContextWithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}

// NewContextWithTrial carries the anonymous trial token extracted from the
// request. The services never read cookies themselves, the transport layer
// resolves identity and passes it explicitly.
func NewContextWithTrial(ctx context.Context, trialToken string) context.Context {
	return context.WithValue(ctx, trialKey, trialToken)
}

func TrialFromContext(ctx context.Context) (string, bool) {
	trialToken, ok := ctx.Value(trialKey).(string)
	return trialToken, ok && trialToken != ""
}
