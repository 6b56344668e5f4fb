package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/store/memory"
)

func setup(t *testing.T) (repository.Repositories, string, string) {
	t.Helper()
	ctx := context.Background()
	repos := memory.New().Repositories()
	tenant, err := repos.Tenants.Create(ctx, repository.CreateTenantInput{Name: "T", Slug: "t-00000001"})
	require.NoError(t, err)
	a, _, err := repos.Projects.Create(ctx, repository.CreateProjectInput{TenantID: tenant.ID, Name: "A", Slug: "a", PublishableKey: "pk_a", SecretKey: "sk_a"})
	require.NoError(t, err)
	b, _, err := repos.Projects.Create(ctx, repository.CreateProjectInput{TenantID: tenant.ID, Name: "B", Slug: "b", PublishableKey: "pk_b", SecretKey: "sk_b"})
	require.NoError(t, err)
	return repos, a.ID, b.ID
}

func emailInput(project, email string) Input {
	return Input{ProjectID: project, Provider: repository.ProviderEmail, ProviderID: email, VerifiedEmail: email}
}

func TestResolve_Idempotent(t *testing.T) {
	ctx := context.Background()
	repos, projectA, _ := setup(t)
	rec := audit.NewRecorder(repos.Audit, nil)
	r := NewResolver(repos.EndUsers, repos.Identities, rec)

	first, err := r.Resolve(ctx, emailInput(projectA, "Ana@Example.com"))
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	assert.Equal(t, "ana@example.com", first.User.Email)

	second, err := r.Resolve(ctx, emailInput(projectA, "ana@example.com"))
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.NotNil(t, second.User.LastSignInAt)

	users, _ := repos.EndUsers.List(ctx, projectA, repository.Page{})
	assert.Len(t, users, 1)

	entries, _ := rec.List(ctx, projectA, repository.Page{})
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionUserLogin, entries[0].Action)
	assert.Equal(t, audit.ActionUserSignup, entries[1].Action)
}

func TestResolve_CrossProviderLinking(t *testing.T) {
	ctx := context.Background()
	repos, projectA, _ := setup(t)
	r := NewResolver(repos.EndUsers, repos.Identities, nil)

	byEmail, err := r.Resolve(ctx, emailInput(projectA, "ben@example.com"))
	require.NoError(t, err)

	byGitHub, err := r.Resolve(ctx, Input{ProjectID: projectA, Provider: repository.ProviderGitHub, ProviderID: "9001", VerifiedEmail: "ben@example.com"})
	require.NoError(t, err)
	assert.True(t, byGitHub.Linked)
	assert.Equal(t, byEmail.User.ID, byGitHub.User.ID)

	ids, _ := repos.Identities.ListByUser(ctx, byEmail.User.ID)
	assert.Len(t, ids, 2)

	// sin email verificado no se vincula: usuario nuevo con email sintético
	anon, err := r.Resolve(ctx, Input{ProjectID: projectA, Provider: repository.ProviderGoogle, ProviderID: "G-1"})
	require.NoError(t, err)
	assert.True(t, anon.IsNew)
	assert.Equal(t, "google+g-1@users.izzu.local", anon.User.Email)

	// otra cuenta de GitHub con el mismo email no pisa la vinculada
	_, err = r.Resolve(ctx, Input{ProjectID: projectA, Provider: repository.ProviderGitHub, ProviderID: "9002", VerifiedEmail: "ben@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestResolve_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	repos, projectA, projectB := setup(t)
	r := NewResolver(repos.EndUsers, repos.Identities, nil)

	a, err := r.Resolve(ctx, emailInput(projectA, "cy@example.com"))
	require.NoError(t, err)
	b, err := r.Resolve(ctx, emailInput(projectB, "cy@example.com"))
	require.NoError(t, err)

	assert.True(t, b.IsNew)
	assert.NotEqual(t, a.User.ID, b.User.ID)
	assert.Equal(t, projectB, b.User.ProjectID)
}

func TestResolve_ConcurrentSameIdentity(t *testing.T) {
	ctx := context.Background()
	repos, projectA, _ := setup(t)
	r := NewResolver(repos.EndUsers, repos.Identities, nil)

	var wg sync.WaitGroup
	ids := make([]string, 10)
	errs := make([]error, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Resolve(ctx, emailInput(projectA, "dee@example.com"))
			errs[i] = err
			if err == nil {
				ids[i] = res.User.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	users, _ := repos.EndUsers.List(ctx, projectA, repository.Page{})
	assert.Len(t, users, 1)
}

// racingUsers simula que otro request crea el usuario justo antes del insert.
type racingUsers struct {
	repository.EndUserRepository
	once   sync.Once
	always bool
}

func (r *racingUsers) CreateWithIdentity(ctx context.Context, u repository.CreateEndUserInput, i repository.CreateIdentityInput) (*repository.EndUser, *repository.Identity, error) {
	if r.always {
		return nil, nil, repository.ErrConflict
	}
	raced := false
	r.once.Do(func() {
		_, _, _ = r.EndUserRepository.CreateWithIdentity(ctx, u, i)
		raced = true
	})
	if raced {
		return nil, nil, repository.ErrConflict
	}
	return r.EndUserRepository.CreateWithIdentity(ctx, u, i)
}

func TestResolve_ConflictRereads(t *testing.T) {
	ctx := context.Background()
	repos, projectA, _ := setup(t)
	r := NewResolver(&racingUsers{EndUserRepository: repos.EndUsers}, repos.Identities, nil)

	res, err := r.Resolve(ctx, emailInput(projectA, "eli@example.com"))
	require.NoError(t, err)
	assert.False(t, res.IsNew, "winner's row is returned after re-read")
	assert.Equal(t, "eli@example.com", res.User.Email)
}

func TestResolve_PersistentConflict(t *testing.T) {
	ctx := context.Background()
	repos, projectA, _ := setup(t)
	r := NewResolver(&racingUsers{EndUserRepository: repos.EndUsers, always: true}, repos.Identities, nil)

	_, err := r.Resolve(ctx, emailInput(projectA, "fay@example.com"))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = r.Resolve(ctx, Input{ProjectID: projectA, Provider: "myspace", ProviderID: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
