package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/oauth"
)

type fakeIDP struct {
	srv   *httptest.Server
	key   *rsa.PrivateKey
	nonce string
	email bool
}

func newFakeIDP(t *testing.T) *fakeIDP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &fakeIDP{key: key, email: true}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(discoveryDoc{
			Issuer:        f.srv.URL,
			AuthEndpoint:  f.srv.URL + "/auth",
			TokenEndpoint: f.srv.URL + "/token",
			JWKSURI:       f.srv.URL + "/certs",
		})
	})
	mux.HandleFunc("/certs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks{Keys: []jwk{{
			Kty: "RSA",
			Kid: "k1",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, IDClaims{
			Email:         "Ana@Example.com",
			EmailVerified: f.email,
			Name:          "Ana",
			Nonce:         f.nonce,
			RegisteredClaims: jwtv5.RegisteredClaims{
				Issuer:    f.srv.URL,
				Subject:   "google-sub-1",
				Audience:  jwtv5.ClaimStrings{"cid"},
				IssuedAt:  jwtv5.NewNumericDate(now),
				ExpiresAt: jwtv5.NewNumericDate(now.Add(time.Hour)),
			},
		})
		tok.Header["kid"] = "k1"
		signed, err := tok.SignedString(key)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ya29",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     signed,
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIDP) provider() *Provider {
	return New(Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "https://app.test/cb",
		DiscoveryURL: f.srv.URL + "/.well-known/openid-configuration",
		Issuers:      []string{f.srv.URL},
	})
}

func TestAuthURL_CarriesNonce(t *testing.T) {
	f := newFakeIDP(t)
	raw, err := f.provider().AuthURL(context.Background(), "st", "n0nce")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth", u.Path)
	assert.Equal(t, "n0nce", u.Query().Get("nonce"))
	assert.Equal(t, "st", u.Query().Get("state"))
	assert.Equal(t, "openid email profile", u.Query().Get("scope"))
}

func TestExchange_VerifiesIDToken(t *testing.T) {
	f := newFakeIDP(t)
	f.nonce = "n0nce"
	prof, err := f.provider().Exchange(context.Background(), "code", "n0nce")
	require.NoError(t, err)
	assert.Equal(t, "google", prof.Provider)
	assert.Equal(t, "google-sub-1", prof.ProviderID)
	assert.Equal(t, "ana@example.com", prof.Email)
	assert.True(t, prof.EmailVerified)
}

func TestExchange_NonceMismatch(t *testing.T) {
	f := newFakeIDP(t)
	f.nonce = "other"
	_, err := f.provider().Exchange(context.Background(), "code", "n0nce")
	assert.ErrorIs(t, err, oauth.ErrExchange)
}

func TestExchange_UnverifiedEmail(t *testing.T) {
	f := newFakeIDP(t)
	f.email = false
	_, err := f.provider().Exchange(context.Background(), "code", "")
	assert.ErrorIs(t, err, oauth.ErrNoEmail)
}

func TestExchange_WrongIssuer(t *testing.T) {
	f := newFakeIDP(t)
	p := New(Config{
		ClientID:     "cid",
		DiscoveryURL: f.srv.URL + "/.well-known/openid-configuration",
	})
	_, err := p.Exchange(context.Background(), "code", "")
	assert.ErrorIs(t, err, oauth.ErrExchange)
}
