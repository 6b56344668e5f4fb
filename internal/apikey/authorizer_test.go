package apikey

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/store/memory"
)

type fixture struct {
	repos     repository.Repositories
	projectA  *repository.Project
	projectB  *repository.Project
	pubA      string
	secretA   string
	secretB   string
	authorize Authorizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.New().Repositories()

	tenant, err := repos.Tenants.Create(ctx, repository.CreateTenantInput{Name: "Acme", Slug: "acme-1234abcd", Email: "ops@acme.io"})
	require.NoError(t, err)

	mk := func(slug string) (*repository.Project, string, string) {
		pub, err := GenerateKey(repository.KeyTypePublishable)
		require.NoError(t, err)
		sec, err := GenerateKey(repository.KeyTypeSecret)
		require.NoError(t, err)
		p, _, err := repos.Projects.Create(ctx, repository.CreateProjectInput{
			TenantID: tenant.ID, Name: slug, Slug: slug, PublishableKey: pub, SecretKey: sec,
		})
		require.NoError(t, err)
		return p, pub, sec
	}

	f := &fixture{repos: repos}
	f.projectA, f.pubA, f.secretA = mk("app-a")
	f.projectB, _, f.secretB = mk("app-b")
	f.authorize = NewAuthorizer(repos.Projects, repos.APIKeys)
	return f
}

func TestAuthorize_PublishableAndSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, err := f.authorize.Authorize(ctx, f.pubA, f.projectA.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.KeyTypePublishable, g.KeyType)
	assert.Equal(t, f.projectA.ID, g.ProjectID)
	assert.ErrorIs(t, g.Require(repository.KeyTypeSecret), ErrInsufficientScope)
	assert.NoError(t, g.Require(repository.KeyTypePublishable))

	g, err = f.authorize.Authorize(ctx, f.secretA, f.projectA.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.KeyTypeSecret, g.KeyType)
	assert.NoError(t, g.Require(repository.KeyTypeSecret))
}

func TestAuthorize_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// key válida de B contra el proyecto A
	_, err := f.authorize.Authorize(ctx, f.secretB, f.projectA.ID)
	assert.ErrorIs(t, err, ErrInvalidKey)

	// proyecto inexistente: mismo error que key equivocada
	_, err = f.authorize.Authorize(ctx, f.pubA, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = f.authorize.Authorize(ctx, "izzu_pk_live_nope", f.projectA.ID)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = f.authorize.Authorize(ctx, "", f.projectA.ID)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestGenerateKey(t *testing.T) {
	pk, err := GenerateKey(repository.KeyTypePublishable)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pk, PublishablePrefix))
	assert.Len(t, pk, len(PublishablePrefix)+24)

	sk, err := GenerateKey(repository.KeyTypeSecret)
	require.NoError(t, err)
	assert.Len(t, sk, len(SecretPrefix)+32)

	_, err = GenerateKey("admin")
	assert.Error(t, err)
}
