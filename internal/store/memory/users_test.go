package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
)

func TestEndUserStats(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	clock := base
	s := New().WithClock(func() time.Time { return clock })
	repos := s.Repositories()

	tenant, err := repos.Tenants.Create(ctx, repository.CreateTenantInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	p1, _, err := repos.Projects.Create(ctx, repository.CreateProjectInput{TenantID: tenant.ID, Name: "One", Slug: "one", PublishableKey: "pk1", SecretKey: "sk1"})
	require.NoError(t, err)
	p2, _, err := repos.Projects.Create(ctx, repository.CreateProjectInput{TenantID: tenant.ID, Name: "Two", Slug: "two", PublishableKey: "pk2", SecretKey: "sk2"})
	require.NoError(t, err)

	create := func(projectID, email string, at time.Time, loc *repository.Location) *repository.EndUser {
		clock = at
		u, _, err := repos.EndUsers.CreateWithIdentity(ctx,
			repository.CreateEndUserInput{ProjectID: projectID, Email: email, Location: loc},
			repository.CreateIdentityInput{Provider: repository.ProviderEmail, ProviderID: email})
		require.NoError(t, err)
		return u
	}
	old := create(p1.ID, "old@x.com", base.Add(-10*24*time.Hour), nil)
	face := create(p1.ID, "face@x.com", base.Add(-48*time.Hour), nil)
	create(p1.ID, "geo@x.com", base.Add(-47*time.Hour), &repository.Location{Lat: 1, Lng: 2})
	fresh := create(p1.ID, "fresh@x.com", base.Add(-time.Hour), nil)
	create(p2.ID, "elsewhere@x.com", base.Add(-time.Hour), &repository.Location{Lat: 3, Lng: 4})

	_, err = repos.EndUsers.SetFace(ctx, face.ID, []float32{0.5}, "")
	require.NoError(t, err)
	require.NoError(t, repos.EndUsers.TouchSignIn(ctx, fresh.ID, repository.SignInUpdate{At: base.Add(-2 * time.Hour)}))
	require.NoError(t, repos.EndUsers.TouchSignIn(ctx, old.ID, repository.SignInUpdate{At: base.Add(-48 * time.Hour)}))

	st, err := repos.EndUsers.Stats(ctx, p1.ID, base)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 1, st.Active24h)
	assert.Equal(t, 1, st.WithFace)
	assert.Equal(t, 1, st.WithLocation)
	assert.Equal(t, []repository.DailyCount{
		{Day: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), Count: 2},
		{Day: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Count: 1},
	}, st.Signups)

	later, err := repos.EndUsers.Stats(ctx, p1.ID, base.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, later.Total)
	assert.Zero(t, later.Active24h)
	assert.Empty(t, later.Signups)

	empty, err := repos.EndUsers.Stats(ctx, "missing", base)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}
