package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/oauth"
)

func fakeGitHub(t *testing.T, emails []emailInfo) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_abc","token_type":"bearer","scope":"user:email"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_abc", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(userInfo{ID: 4242, Login: "octo", AvatarURL: "https://avatars.test/1"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(emails)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newProvider(srv *httptest.Server) *Provider {
	return New(Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "https://app.test/auth/oauth/github/callback",
		AuthURL:      srv.URL + "/login/oauth/authorize",
		TokenURL:     srv.URL + "/login/oauth/access_token",
		APIBase:      srv.URL,
	})
}

func TestAuthURL(t *testing.T) {
	srv := fakeGitHub(t, nil)
	raw, err := newProvider(srv).AuthURL(context.Background(), "st4te", "n")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "st4te", q.Get("state"))
	assert.Equal(t, "user:email read:user", q.Get("scope"))
	assert.Equal(t, "true", q.Get("allow_signup"))
}

func TestExchange_PrimaryVerifiedEmail(t *testing.T) {
	srv := fakeGitHub(t, []emailInfo{
		{Email: "old@example.com", Verified: true},
		{Email: "Octo@Example.com", Primary: true, Verified: true},
	})
	prof, err := newProvider(srv).Exchange(context.Background(), "good-code", "")
	require.NoError(t, err)
	assert.Equal(t, "github", prof.Provider)
	assert.Equal(t, "4242", prof.ProviderID)
	assert.Equal(t, "octo@example.com", prof.Email)
	assert.True(t, prof.EmailVerified)
	assert.Equal(t, "octo", prof.Name)
}

func TestExchange_NoVerifiedEmail(t *testing.T) {
	srv := fakeGitHub(t, []emailInfo{{Email: "x@example.com", Primary: true}})
	_, err := newProvider(srv).Exchange(context.Background(), "good-code", "")
	assert.ErrorIs(t, err, oauth.ErrNoEmail)
}

func TestExchange_BadCode(t *testing.T) {
	srv := fakeGitHub(t, nil)
	_, err := newProvider(srv).Exchange(context.Background(), "nope", "")
	assert.ErrorIs(t, err, oauth.ErrExchange)
}
