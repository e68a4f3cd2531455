package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smolentsev/hookbin/internal/apperrors"
	"github.com/smolentsev/hookbin/internal/models"
	"github.com/smolentsev/hookbin/internal/testutil"
)

func trialEndpoint(slug string, trialToken string) models.Endpoint {
	return models.Endpoint{Slug: slug, Name: "test endpoint", TrialToken: &trialToken}
}

func Test_EndpointRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create trial endpoint ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EndpointRepo{DB: tx}

			got, err := repo.Create(t.Context(), trialEndpoint("ab12cd34", "trial-x"))

			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, got.ID)
			require.Equal(t, "ab12cd34", got.Slug)
			require.Nil(t, got.UserID, "trial endpoint has no user owner")
			require.NotNil(t, got.TrialToken)
			require.Equal(t, "trial-x", *got.TrialToken)
		})
	})

	t.Run("create user endpoint ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			repo := EndpointRepo{DB: tx}
			user, err := users.GetOrCreateByEmail(t.Context(), "user@example.com")
			require.NoError(t, err)

			got, err := repo.Create(t.Context(), models.Endpoint{Slug: "ab12cd34", UserID: &user.ID})

			require.NoError(t, err)
			require.NotNil(t, got.UserID)
			require.Equal(t, user.ID, *got.UserID)
			require.Nil(t, got.TrialToken)
		})
	})

	// The errors abort the enclosing transaction, so each violation gets its own
	t.Run("two owners at once are rejected", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			repo := EndpointRepo{DB: tx}
			user, err := users.GetOrCreateByEmail(t.Context(), "user@example.com")
			require.NoError(t, err)
			trialToken := "trial-x"

			_, err = repo.Create(t.Context(), models.Endpoint{
				Slug:       "ab12cd34",
				UserID:     &user.ID,
				TrialToken: &trialToken,
			})

			require.Error(t, err, "check constraint must reject an endpoint with two owners")
			require.NotErrorIs(t, err, apperrors.ErrSlugTaken)
		})
	})

	t.Run("ownerless endpoint is rejected", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EndpointRepo{DB: tx}

			_, err := repo.Create(t.Context(), models.Endpoint{Slug: "ab12cd34"})

			require.Error(t, err, "check constraint must reject an endpoint with no owner")
			require.NotErrorIs(t, err, apperrors.ErrSlugTaken)
		})
	})

	t.Run("duplicate slug is rejected", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EndpointRepo{DB: tx}
			_, err := repo.Create(t.Context(), trialEndpoint("ab12cd34", "trial-x"))
			require.NoError(t, err)

			_, err = repo.Create(t.Context(), trialEndpoint("ab12cd34", "trial-y"))

			require.Error(t, err, "unique constraint must reject the second insert")
			assert.ErrorIs(t, err, apperrors.ErrSlugTaken)
		})
	})

	t.Run("slug exists", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EndpointRepo{DB: tx}
			_, err := repo.Create(t.Context(), trialEndpoint("ab12cd34", "trial-x"))
			require.NoError(t, err)

			exists, err := repo.SlugExists(t.Context(), "ab12cd34")
			require.NoError(t, err)
			require.True(t, exists)

			exists, err = repo.SlugExists(t.Context(), "free1234")
			require.NoError(t, err)
			require.False(t, exists)
		})
	})

	t.Run("get by slug not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EndpointRepo{DB: tx}

			_, err := repo.GetBySlug(t.Context(), "free1234")

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrEndpointNotFound)
		})
	})

	t.Run("adopt hands endpoint over once", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			repo := EndpointRepo{DB: tx}
			user, err := users.GetOrCreateByEmail(t.Context(), "a@b.com")
			require.NoError(t, err)
			_, err = repo.Create(t.Context(), trialEndpoint("ab12cd34", "trial-x"))
			require.NoError(t, err)

			got, err := repo.Adopt(t.Context(), "ab12cd34", "trial-x", user.ID)

			require.NoError(t, err)
			require.NotNil(t, got.UserID, "adopted endpoint must carry the user owner")
			require.Equal(t, user.ID, *got.UserID)
			require.Nil(t, got.TrialToken, "adopted endpoint must drop the trial owner")

			// The trial token no longer owns the endpoint, a second adopt must lose
			_, err = repo.Adopt(t.Context(), "ab12cd34", "trial-x", user.ID)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrEndpointAlreadyClaimed)
		})
	})

	t.Run("adopt with wrong trial token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			repo := EndpointRepo{DB: tx}
			user, err := users.GetOrCreateByEmail(t.Context(), "a@b.com")
			require.NoError(t, err)
			_, err = repo.Create(t.Context(), trialEndpoint("ab12cd34", "trial-x"))
			require.NoError(t, err)

			_, err = repo.Adopt(t.Context(), "ab12cd34", "trial-other", user.ID)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrEndpointAlreadyClaimed)
		})
	})

	t.Run("adopt all is bulk and re-runnable", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			repo := EndpointRepo{DB: tx}
			user, err := users.GetOrCreateByEmail(t.Context(), "a@b.com")
			require.NoError(t, err)

			for _, slug := range []string{"aaaa1111", "bbbb2222"} {
				_, err = repo.Create(t.Context(), trialEndpoint(slug, "trial-x"))
				require.NoError(t, err)
			}
			_, err = repo.Create(t.Context(), trialEndpoint("cccc3333", "trial-other"))
			require.NoError(t, err)

			adopted, err := repo.AdoptAll(t.Context(), "trial-x", user.ID)

			require.NoError(t, err)
			require.EqualValues(t, 2, adopted, "both trial-x endpoints should be handed over")

			owned, err := repo.ListByUser(t.Context(), user.ID)
			require.NoError(t, err)
			require.Len(t, owned, 2)

			// Re-run matches nothing: adopted endpoints carry no trial token
			adopted, err = repo.AdoptAll(t.Context(), "trial-x", user.ID)
			require.NoError(t, err)
			require.EqualValues(t, 0, adopted)

			// The other trial is untouched
			left, err := repo.ListByTrialToken(t.Context(), "trial-other")
			require.NoError(t, err)
			require.Len(t, left, 1)
		})
	})

	t.Run("list by trial token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := EndpointRepo{DB: tx}
			_, err := repo.Create(t.Context(), trialEndpoint("aaaa1111", "trial-x"))
			require.NoError(t, err)

			endpoints, err := repo.ListByTrialToken(t.Context(), "trial-x")

			require.NoError(t, err)
			require.Len(t, endpoints, 1)
			require.Equal(t, "aaaa1111", endpoints[0].Slug)
		})
	})

	t.Run("delete owned endpoint", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			repo := EndpointRepo{DB: tx}
			user, err := users.GetOrCreateByEmail(t.Context(), "a@b.com")
			require.NoError(t, err)
			_, err = repo.Create(t.Context(), models.Endpoint{Slug: "ab12cd34", UserID: &user.ID})
			require.NoError(t, err)

			err = repo.Delete(t.Context(), "ab12cd34", user.ID)
			require.NoError(t, err)

			_, err = repo.GetBySlug(t.Context(), "ab12cd34")
			require.ErrorIs(t, err, apperrors.ErrEndpointNotFound)
		})
	})

	t.Run("delete endpoint of someone else", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			repo := EndpointRepo{DB: tx}
			owner, err := users.GetOrCreateByEmail(t.Context(), "a@b.com")
			require.NoError(t, err)
			other, err := users.GetOrCreateByEmail(t.Context(), "c@d.com")
			require.NoError(t, err)
			_, err = repo.Create(t.Context(), models.Endpoint{Slug: "ab12cd34", UserID: &owner.ID})
			require.NoError(t, err)

			err = repo.Delete(t.Context(), "ab12cd34", other.ID)

			require.Error(t, err, "only the owner may delete the endpoint")
			assert.ErrorIs(t, err, apperrors.ErrEndpointNotFound)
		})
	})
}
