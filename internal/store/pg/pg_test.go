package pg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	migrations "github.com/dropDatabas3/izzu/migrations/postgres"
)

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(pgx.ErrNoRows), repository.ErrNotFound)
	assert.ErrorIs(t, mapErr(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})), repository.ErrConflict)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23503"}), repository.ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "22P02"}), repository.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

func TestParseMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_more_up.sql":   {Data: []byte("B")},
		"m/0001_init_up.sql":   {Data: []byte("A")},
		"m/0001_init_down.sql": {Data: []byte("a")},
		"m/README.md":          {Data: []byte("ignored")},
	}
	migs, err := NewMigrator(fsys, "m").ParseMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, Migration{Version: 1, Name: "init", Up: "A", Down: "a"}, migs[0])
	assert.Equal(t, Migration{Version: 2, Name: "more", Up: "B"}, migs[1])
}

func TestParseMigrations_DownWithoutUp(t *testing.T) {
	fsys := fstest.MapFS{"m/0003_x_down.sql": {Data: []byte("x")}}
	_, err := NewMigrator(fsys, "m").ParseMigrations()
	require.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := NewMigrator(migrations.CoreFS, migrations.CoreDir).ParseMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, 1, migs[0].Version)
	assert.Contains(t, migs[0].Up, "CREATE TABLE IF NOT EXISTS end_users")
	assert.NotEmpty(t, migs[0].Down)
}

// Los tests contra una base real solo corren con IZZU_TEST_PG_DSN apuntando a
// un PostgreSQL descartable con la extensión vector disponible.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("IZZU_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("IZZU_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := New(ctx, dsn, Config{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	m := NewMigrator(migrations.CoreFS, migrations.CoreDir)
	_, _ = m.Down(ctx, s, 100)
	_, err = m.Up(ctx, s)
	require.NoError(t, err)
	return s
}

func TestStore_Integration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repos := s.Repositories()

	admin, tenant, err := repos.Admins.CreateWithTenant(ctx,
		repository.CreateTenantInput{Name: "Acme", Slug: "acme", Email: "Owner@Acme.io"},
		repository.CreateAdminInput{Email: "Owner@Acme.io", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.io", admin.Email)
	assert.Equal(t, repository.AdminRoleOwner, admin.Role)
	require.NotNil(t, admin.EmailVerifiedAt)

	_, _, err = repos.Admins.CreateWithTenant(ctx,
		repository.CreateTenantInput{Name: "Other", Slug: "other"},
		repository.CreateAdminInput{Email: "owner@acme.io"})
	require.ErrorIs(t, err, repository.ErrConflict)
	_, err = repos.Tenants.GetByID(ctx, tenant.ID)
	require.NoError(t, err)

	proj, keys, err := repos.Projects.Create(ctx, repository.CreateProjectInput{
		TenantID: tenant.ID, Name: "App", Slug: "app",
		PublishableKey: "izzu_pk_live_it", SecretKey: "izzu_sk_live_it",
		AllowedOrigins: []string{"https://app.acme.io"},
	})
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, keys[1].ID, proj.Config.SecretKeyID)

	got, err := repos.Projects.GetByID(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, proj.Config, got.Config)

	t.Run("end user with identity", func(t *testing.T) {
		u, id, err := repos.EndUsers.CreateWithIdentity(ctx,
			repository.CreateEndUserInput{ProjectID: proj.ID, Email: "Ana@Example.com"},
			repository.CreateIdentityInput{Provider: repository.ProviderEmail, ProviderID: "ana@example.com", Verified: true})
		require.NoError(t, err)
		assert.Equal(t, u.ID, id.EndUserID)
		assert.Equal(t, proj.ID, id.ProjectID)

		_, _, err = repos.EndUsers.CreateWithIdentity(ctx,
			repository.CreateEndUserInput{ProjectID: proj.ID, Email: "ana@example.com"},
			repository.CreateIdentityInput{Provider: repository.ProviderEmail, ProviderID: "ana@example.com"})
		require.ErrorIs(t, err, repository.ErrConflict)

		enc := make([]float32, 128)
		enc[0], enc[127] = 0.25, -1
		withFace, err := repos.EndUsers.SetFace(ctx, u.ID, enc, "https://cdn/face.jpg")
		require.NoError(t, err)
		assert.True(t, withFace.FaceVerified())
		assert.Equal(t, enc, withFace.FaceEncoding)

		require.NoError(t, repos.EndUsers.TouchSignIn(ctx, u.ID, repository.SignInUpdate{
			At: time.Now().UTC(), Location: &repository.Location{Lat: 1.5, Lng: 2.5},
		}))
		back, err := repos.EndUsers.GetByEmail(ctx, proj.ID, "ANA@example.com")
		require.NoError(t, err)
		require.NotNil(t, back.Location)
		assert.Equal(t, 1.5, back.Location.Lat)
		assert.Equal(t, "https://cdn/face.jpg", back.LastLoginPhotoURL)
	})

	t.Run("passkey counter compare-and-set", func(t *testing.T) {
		u, _, err := repos.EndUsers.CreateWithIdentity(ctx,
			repository.CreateEndUserInput{ProjectID: proj.ID, Email: "pk@example.com"},
			repository.CreateIdentityInput{Provider: repository.ProviderEmail, ProviderID: "pk@example.com"})
		require.NoError(t, err)
		pk, err := repos.Passkeys.Create(ctx, repository.CreatePasskeyInput{
			EndUserID: u.ID, CredentialID: "cred-1", PublicKey: []byte{1, 2, 3}, Counter: 5,
		})
		require.NoError(t, err)

		require.ErrorIs(t, repos.Passkeys.UpdateCounter(ctx, pk.ID, 4, 6, time.Now()), repository.ErrConflict)
		require.NoError(t, repos.Passkeys.UpdateCounter(ctx, pk.ID, 5, 6, time.Now()))

		got, err := repos.Passkeys.GetByCredentialID(ctx, proj.ID, "cred-1")
		require.NoError(t, err)
		assert.EqualValues(t, 6, got.Counter)
		require.NotNil(t, got.LastUsedAt)
	})

	t.Run("webhooks by event", func(t *testing.T) {
		_, err := repos.Webhooks.Create(ctx, repository.CreateWebhookInput{
			ProjectID: proj.ID, URL: "https://hooks.acme.io", Secret: "whsec_x", Events: []string{"user.login"},
		})
		require.NoError(t, err)
		hooks, err := repos.Webhooks.ListActiveForEvent(ctx, proj.ID, "user.login")
		require.NoError(t, err)
		assert.Len(t, hooks, 1)
		hooks, err = repos.Webhooks.ListActiveForEvent(ctx, proj.ID, "user.signup")
		require.NoError(t, err)
		assert.Empty(t, hooks)
	})

	t.Run("user stats", func(t *testing.T) {
		// ana: rostro, ubicación y sign-in reciente; pk@: solo alta
		st, err := repos.EndUsers.Stats(ctx, proj.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 2, st.Total)
		assert.Equal(t, 1, st.Active24h)
		assert.Equal(t, 1, st.WithFace)
		assert.Equal(t, 1, st.WithLocation)
		total := 0
		for _, d := range st.Signups {
			total += d.Count
		}
		assert.Equal(t, 2, total)

		none, err := repos.EndUsers.Stats(ctx, "00000000-0000-0000-0000-000000000000", time.Now())
		require.NoError(t, err)
		assert.Zero(t, none.Total)
	})
}
