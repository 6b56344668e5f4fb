package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, "memory", c.SecretStore.Driver)
	assert.Equal(t, 300*time.Second, c.OTP.TTL)
	assert.Equal(t, 6, c.OTP.Digits)
	assert.Equal(t, 30*24*time.Hour, c.Session.TTL)
	assert.Equal(t, "izzu_admin_session", c.Session.CookieName)
	assert.Equal(t, 300*time.Second, c.Passkey.ChallengeTTL)
	assert.Equal(t, []string{"openid", "email", "profile"}, c.OAuth.Google.Scopes)
	assert.Equal(t, Limit{Limit: 10, Window: time.Minute}, c.Rate.OTP)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	p := writeYAML(t, `
app:
  env: staging
server:
  addr: ":9000"
otp:
  ttl: 2m
  dev_mode: true
storage:
  driver: postgres
  dsn: postgres://yaml
rate:
  enabled: true
  otp:
    limit: 3
    window: 30s
`)
	t.Setenv("IZZU_SERVER_ADDR", ":9100")
	t.Setenv("IZZU_STORAGE_DSN", "postgres://env")
	t.Setenv("IZZU_PASSKEY_RP_ORIGINS", "https://a.example,https://b.example")

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "staging", c.App.Env)
	assert.Equal(t, ":9100", c.Server.Addr)
	assert.Equal(t, "postgres://env", c.Storage.DSN)
	assert.Equal(t, 2*time.Minute, c.OTP.TTL)
	assert.True(t, c.OTP.DevMode)
	assert.Equal(t, Limit{Limit: 3, Window: 30 * time.Second}, c.Rate.OTP)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Passkey.RPOrigins)
}

func TestLoad_ProdForcesDevModeOff(t *testing.T) {
	p := writeYAML(t, `
app:
  env: prod
storage:
  driver: postgres
  dsn: postgres://x
otp:
  dev_mode: true
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.False(t, c.OTP.DevMode)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres without dsn", map[string]string{"IZZU_STORAGE_DRIVER": "postgres"}, "storage.dsn"},
		{"unknown driver", map[string]string{"IZZU_STORAGE_DRIVER": "mongo"}, "storage.driver"},
		{"memory in prod", map[string]string{"IZZU_APP_ENV": "prod"}, "not allowed in prod"},
		{"redis without addr", map[string]string{"IZZU_SECRET_STORE_DRIVER": "redis"}, "secret_store.addr"},
		{"oauth without state secret", map[string]string{
			"IZZU_OAUTH_GITHUB_ENABLED": "true", "IZZU_OAUTH_GITHUB_CLIENT_ID": "id", "IZZU_OAUTH_GITHUB_CLIENT_SECRET": "s",
		}, "state_secret"},
		{"google without credentials", map[string]string{
			"IZZU_OAUTH_GOOGLE_ENABLED": "true", "IZZU_OAUTH_STATE_SECRET": "0123456789abcdef0123456789abcdef",
		}, "oauth.google"},
		{"webhooks without redis", map[string]string{"IZZU_WEBHOOKS_ENABLED": "true"}, "webhooks.redis_addr"},
		{"bad origin", map[string]string{"IZZU_PASSKEY_RP_ORIGINS": "not-a-url"}, "rp_origins"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
