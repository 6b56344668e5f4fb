package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/apikey"
	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	"github.com/dropDatabas3/izzu/internal/identity"
	"github.com/dropDatabas3/izzu/internal/otp"
	"github.com/dropDatabas3/izzu/internal/secretstore"
	"github.com/dropDatabas3/izzu/internal/session"
	"github.com/dropDatabas3/izzu/internal/store/memory"
)

type harness struct {
	svc   Services
	repos repository.Repositories
	otp   otp.Service
}

func newHarness(t *testing.T, platform bool) *harness {
	t.Helper()
	repos := memory.New().Repositories()
	ss := secretstore.NewMemory("test")
	t.Cleanup(func() { _ = ss.Close() })
	otps := otp.NewService(ss, otp.Config{DevMode: true})
	rec := audit.NewRecorder(repos.Audit, nil)

	d := Deps{
		Repos:    repos,
		Sessions: session.NewService(repos.Sessions, 0),
		OTP:      otps,
		Audit:    rec,
	}
	if platform {
		tenant, err := repos.Tenants.Create(context.Background(), repository.CreateTenantInput{Name: "Platform", Slug: "platform"})
		require.NoError(t, err)
		p, _, err := repos.Projects.Create(context.Background(), repository.CreateProjectInput{
			TenantID: tenant.ID, Name: "Console", Slug: "console",
			PublishableKey: "izzu_pk_live_platform", SecretKey: "izzu_sk_live_platform",
		})
		require.NoError(t, err)
		d.Resolver = identity.NewResolver(repos.EndUsers, repos.Identities, rec)
		d.PlatformProjectID = p.ID
	}
	return &harness{svc: NewServices(d), repos: repos, otp: otps}
}

func (h *harness) signIn(t *testing.T, email string) (*dto.SignInResult, *Principal) {
	t.Helper()
	ctx := context.Background()
	res, err := h.svc.Auth.SignIn(ctx, SignInInput{Email: email, Provider: "github", ProviderID: "gh-" + email})
	require.NoError(t, err)
	p, err := h.svc.Auth.Authenticate(ctx, res.SessionToken)
	require.NoError(t, err)
	return res, p
}

func TestTenantSlug(t *testing.T) {
	assert.Equal(t, "ana-maria-1a2b3c4d", TenantSlug("Ana.Maria@example.com", "1a2b3c4d"))
	assert.Equal(t, "x-y-00000000", TenantSlug("x+y@ex.io", "00000000"))
}

func TestSlugifyAndMask(t *testing.T) {
	assert.Equal(t, "my-cool-app", Slugify("  My Cool  App!! "))
	assert.Equal(t, "", Slugify("!!!"))

	masked := MaskKey(apikey.SecretPrefix + "0123456789abcdef")
	assert.Equal(t, apikey.SecretPrefix+"••••cdef", masked)
}

func TestOTPSignUpThenLogin(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	issued, err := h.svc.Auth.SendOTP(ctx, dto.OTPSendRequest{Email: "Founder@Acme.io"})
	require.NoError(t, err)
	require.NotEmpty(t, issued.Code)

	lat, lng := -34.6, -58.4
	first, err := h.svc.Auth.VerifyOTP(ctx, dto.OTPVerifyRequest{
		Identifier: "founder@acme.io", Code: issued.Code, Name: "Founder",
		LocationLat: &lat, LocationLng: &lng,
	}, session.Meta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.True(t, first.IsNewAdmin)
	assert.NotEmpty(t, first.TenantID)
	assert.NotEmpty(t, first.SessionToken)

	tenant, err := h.repos.Tenants.GetByID(ctx, first.TenantID)
	require.NoError(t, err)
	assert.Regexp(t, `^founder-[0-9a-f]{8}$`, tenant.Slug)
	assert.Equal(t, "Founder", tenant.Name)

	// el código es de un solo uso
	_, err = h.svc.Auth.VerifyOTP(ctx, dto.OTPVerifyRequest{Identifier: "founder@acme.io", Code: issued.Code}, session.Meta{})
	assert.ErrorIs(t, err, ErrInvalidOTP)

	again, err := h.otp.Issue(ctx, "founder@acme.io", otp.ChannelEmail)
	require.NoError(t, err)
	second, err := h.svc.Auth.VerifyOTP(ctx, dto.OTPVerifyRequest{Identifier: "founder@acme.io", Code: again.Code}, session.Meta{})
	require.NoError(t, err)
	assert.False(t, second.IsNewAdmin)
	assert.Equal(t, first.AdminID, second.AdminID)
	assert.Equal(t, first.TenantID, second.TenantID)
}

func TestVerifyOTP_Validation(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.svc.Auth.VerifyOTP(context.Background(), dto.OTPVerifyRequest{Identifier: "a@b.c"}, session.Meta{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.svc.Auth.SendOTP(context.Background(), dto.OTPSendRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSignIn_MirrorsPlatformUser(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	res, _ := h.signIn(t, "dev@studio.io")
	require.True(t, res.IsNewAdmin)

	key, err := h.repos.APIKeys.GetByKey(ctx, "izzu_pk_live_platform")
	require.NoError(t, err)
	u, err := h.repos.EndUsers.GetByEmail(ctx, key.ProjectID, "dev@studio.io")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	// el admin vive en su propio tenant, no en el de plataforma
	platform, err := h.repos.Projects.GetByID(ctx, key.ProjectID)
	require.NoError(t, err)
	assert.NotEqual(t, platform.TenantID, res.TenantID)
}

func TestAuthenticateAndLogout(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	res, p := h.signIn(t, "ops@acme.io")
	assert.Equal(t, res.AdminID, p.AdminID)
	assert.Equal(t, repository.AdminRoleOwner, p.Role)

	me, err := h.svc.Auth.Me(ctx, *p)
	require.NoError(t, err)
	assert.Equal(t, "ops@acme.io", me.Email)
	assert.Regexp(t, `^ops-`, me.TenantSlug)

	require.NoError(t, h.svc.Auth.Logout(ctx, res.SessionToken))
	_, err = h.svc.Auth.Authenticate(ctx, res.SessionToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = h.svc.Auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestProjectsKeysWebhooks(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	_, p := h.signIn(t, "owner@acme.io")

	created, err := h.svc.Projects.Create(ctx, *p, dto.CreateProjectRequest{Name: "Mobile App"})
	require.NoError(t, err)
	assert.Equal(t, "mobile-app", created.Slug)
	assert.True(t, len(created.APIKey) > len(apikey.PublishablePrefix))
	assert.Contains(t, created.SecretKey, apikey.SecretPrefix)

	_, err = h.svc.Projects.Create(ctx, *p, dto.CreateProjectRequest{Name: "Other", Slug: "mobile-app"})
	assert.ErrorIs(t, err, ErrConflict)

	list, err := h.svc.Projects.List(ctx, *p)
	require.NoError(t, err)
	require.Len(t, list, 1)

	k, err := h.svc.Keys.Create(ctx, *p, created.ID, dto.CreateKeyRequest{Type: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Secret Key", k.Name)
	assert.Contains(t, k.Key, apikey.SecretPrefix)

	_, err = h.svc.Keys.Create(ctx, *p, created.ID, dto.CreateKeyRequest{Type: "admin"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	keys, err := h.svc.Keys.List(ctx, *p, created.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 3)
	for _, kk := range keys {
		if kk.Type == "secret" {
			assert.Contains(t, kk.Key, "••••")
		}
	}

	wh, err := h.svc.Webhooks.Create(ctx, *p, created.ID, dto.CreateWebhookRequest{URL: "https://hooks.acme.io/izzu"})
	require.NoError(t, err)
	assert.Regexp(t, `^whsec_[0-9a-f]{48}$`, wh.Secret)
	assert.Equal(t, DefaultWebhookEvents, wh.Events)

	_, err = h.svc.Webhooks.Create(ctx, *p, created.ID, dto.CreateWebhookRequest{URL: "ftp://nope"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	whs, err := h.svc.Webhooks.List(ctx, *p, created.ID)
	require.NoError(t, err)
	require.Len(t, whs, 1)
	assert.Empty(t, whs[0].Secret)

	logs, err := h.svc.Users.AuditLogs(ctx, *p, created.ID, repository.Page{})
	require.NoError(t, err)
	actions := map[string]bool{}
	for _, l := range logs {
		actions[l.Action] = true
	}
	assert.True(t, actions[audit.ActionAPIKeyCreated])
	assert.True(t, actions[audit.ActionWebhookCreated])

	users, err := h.svc.Users.List(ctx, *p, created.ID, repository.Page{})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestCrossTenantAccessIsForbidden(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	_, alice := h.signIn(t, "alice@one.io")
	_, bob := h.signIn(t, "bob@two.io")
	require.NotEqual(t, alice.TenantID, bob.TenantID)

	proj, err := h.svc.Projects.Create(ctx, *alice, dto.CreateProjectRequest{Name: "Alice App"})
	require.NoError(t, err)

	_, err = h.svc.Keys.List(ctx, *bob, proj.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.svc.Users.List(ctx, *bob, proj.ID, repository.Page{})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.svc.Webhooks.Create(ctx, *bob, proj.ID, dto.CreateWebhookRequest{URL: "https://evil.test"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.svc.Keys.List(ctx, *bob, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.svc.Users.Analytics(ctx, *bob, proj.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	bobs, err := h.svc.Projects.List(ctx, *bob)
	require.NoError(t, err)
	assert.Empty(t, bobs)
}

func TestAnalytics_ScopedToProject(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	_, p := h.signIn(t, "owner@acme.io")

	a, err := h.svc.Projects.Create(ctx, *p, dto.CreateProjectRequest{Name: "A"})
	require.NoError(t, err)
	b, err := h.svc.Projects.Create(ctx, *p, dto.CreateProjectRequest{Name: "B"})
	require.NoError(t, err)

	mk := func(projectID, email string, loc *repository.Location) *repository.EndUser {
		now := time.Now().UTC()
		u, _, err := h.repos.EndUsers.CreateWithIdentity(ctx,
			repository.CreateEndUserInput{ProjectID: projectID, Email: email, Location: loc, SignedInAt: &now},
			repository.CreateIdentityInput{Provider: repository.ProviderEmail, ProviderID: email})
		require.NoError(t, err)
		return u
	}
	u := mk(a.ID, "one@x.com", &repository.Location{Lat: 1, Lng: 2})
	mk(a.ID, "two@x.com", nil)
	mk(b.ID, "three@x.com", &repository.Location{Lat: 3, Lng: 4})
	_, err = h.repos.EndUsers.SetFace(ctx, u.ID, []float32{0.1}, "")
	require.NoError(t, err)

	got, err := h.svc.Users.Analytics(ctx, *p, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ProjectID)
	assert.Equal(t, 2, got.TotalUsers)
	assert.Equal(t, 2, got.ActiveUsers)
	assert.Equal(t, 1, got.ActiveFaceIDs)
	assert.Equal(t, 1, got.LocationsTracked)
	require.Len(t, got.Signups, 1)
	assert.Equal(t, time.Now().UTC().Format(time.DateOnly), got.Signups[0].Date)
	assert.Equal(t, 2, got.Signups[0].Count)

	_, err = h.svc.Users.Analytics(ctx, *p, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}
