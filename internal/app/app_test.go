package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/config"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/health"
)

func newTestApp(t *testing.T, env map[string]string) *App {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := New(context.Background(), cfg, Deps{})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	return a
}

func get(a *App, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestNew_MemoryHealth(t *testing.T) {
	a := newTestApp(t, nil)

	assert.Equal(t, http.StatusOK, get(a, "/healthz").Code)

	rr := get(a, "/readyz")
	require.Equal(t, http.StatusOK, rr.Code)
	var body dto.HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Components["db"].Status)
	assert.Equal(t, "ok", body.Components["secret_store"].Status)
	assert.Equal(t, "disabled", body.Components["face"].Status)

	assert.Equal(t, http.StatusOK, get(a, "/metrics").Code)
}

func TestNew_SDKRequiresKey(t *testing.T) {
	a := newTestApp(t, map[string]string{"IZZU_OTP_DEV_MODE": "true"})
	ctx := context.Background()

	tenant, err := a.Repos.Tenants.Create(ctx, repository.CreateTenantInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	p, _, err := a.Repos.Projects.Create(ctx, repository.CreateProjectInput{
		TenantID: tenant.ID, Name: "App", Slug: "app", PublishableKey: "izzu_pk_live_app", SecretKey: "izzu_sk_live_app",
	})
	require.NoError(t, err)

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/sdk/otp/send",
			strings.NewReader(`{"project_id":"`+p.ID+`","email":"ana@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rr := httptest.NewRecorder()
		a.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusUnauthorized, send(""))
	assert.Equal(t, http.StatusOK, send("izzu_pk_live_app"))
}

func TestNew_OAuthRoutesOnlyWhenEnabled(t *testing.T) {
	a := newTestApp(t, nil)
	assert.Equal(t, http.StatusNotFound, get(a, "/auth/oauth/github").Code)

	a = newTestApp(t, map[string]string{
		"IZZU_OAUTH_GITHUB_ENABLED":       "true",
		"IZZU_OAUTH_GITHUB_CLIENT_ID":     "cid",
		"IZZU_OAUTH_GITHUB_CLIENT_SECRET": "csecret",
		"IZZU_OAUTH_GITHUB_REDIRECT_URL":  "http://localhost:8080/auth/oauth/github/callback",
		"IZZU_OAUTH_STATE_SECRET":         "0123456789abcdef0123456789abcdef",
	})
	rr := get(a, "/auth/oauth/github")
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "client_id=cid")

	rr = get(a, "/auth/oauth/google")
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "/login?error=unknown_provider")
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "mongo"
	_, err := OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}
