// Package google implementa el login OIDC con Google: intercambio de code
// con x/oauth2 y verificación del id_token contra el JWKS publicado.
package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/izzu/internal/oauth"
)

const (
	defaultDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"
	discoveryTTL        = 24 * time.Hour
	jwksTTL             = time.Hour
)

var defaultIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Solo para tests / entornos alternativos.
	DiscoveryURL string
	Issuers      []string
}

type discoveryDoc struct {
	Issuer        string `json:"issuer"`
	AuthEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type Provider struct {
	cfg  Config
	http *http.Client

	mu     sync.RWMutex
	disc   *discoveryDoc
	discAt time.Time
	keys   *jwks
	keysAt time.Time
	etag   string
}

func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email", "profile"}
	}
	if cfg.DiscoveryURL == "" {
		cfg.DiscoveryURL = defaultDiscoveryURL
	}
	if len(cfg.Issuers) == 0 {
		cfg.Issuers = defaultIssuers
	}
	return &Provider{cfg: cfg, http: &http.Client{Timeout: oauth.HTTPTimeout}}
}

func (g *Provider) Name() string { return "google" }

func (g *Provider) oauthConfig(d *discoveryDoc) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.cfg.ClientID,
		ClientSecret: g.cfg.ClientSecret,
		RedirectURL:  g.cfg.RedirectURL,
		Scopes:       g.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   d.AuthEndpoint,
			TokenURL:  d.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthURL construye la URL de autorización
func (g *Provider) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	d, err := g.discovery(ctx)
	if err != nil {
		return "", err
	}
	return g.oauthConfig(d).AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

func (g *Provider) Exchange(ctx context.Context, code, nonce string) (*oauth.Profile, error) {
	d, err := g.discovery(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := g.oauthConfig(d).Exchange(context.WithValue(ctx, oauth2.HTTPClient, g.http), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrExchange, err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, fmt.Errorf("%w: missing id_token", oauth.ErrExchange)
	}
	claims, err := g.VerifyIDToken(ctx, raw, nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrExchange, err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, oauth.ErrNoEmail
	}
	return &oauth.Profile{
		Provider:      g.Name(),
		ProviderID:    claims.Subject,
		Email:         strings.ToLower(claims.Email),
		EmailVerified: true,
		Name:          claims.Name,
		AvatarURL:     claims.Picture,
	}, nil
}

// IDClaims son los claims del id_token que nos importan.
type IDClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Nonce         string `json:"nonce"`
	jwtv5.RegisteredClaims
}

// VerifyIDToken valida firma RS256, iss, aud, exp y nonce.
func (g *Provider) VerifyIDToken(ctx context.Context, idToken, expectedNonce string) (*IDClaims, error) {
	var claims IDClaims
	_, err := jwtv5.ParseWithClaims(idToken, &claims, func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return g.rsaKeyForKid(ctx, kid)
	},
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithAudience(g.cfg.ClientID),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, err
	}
	issOK := false
	for _, iss := range g.cfg.Issuers {
		if claims.Issuer == iss {
			issOK = true
			break
		}
	}
	if !issOK {
		return nil, fmt.Errorf("bad iss: %s", claims.Issuer)
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return nil, errors.New("bad nonce")
	}
	return &claims, nil
}

func (g *Provider) discovery(ctx context.Context) (*discoveryDoc, error) {
	g.mu.RLock()
	d, at := g.disc, g.discAt
	g.mu.RUnlock()
	if d != nil && time.Since(at) < discoveryTTL {
		return d, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.DiscoveryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: discovery: %v", oauth.ErrExchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: discovery http %d", oauth.ErrExchange, resp.StatusCode)
	}
	var dd discoveryDoc
	if err := json.NewDecoder(resp.Body).Decode(&dd); err != nil {
		return nil, fmt.Errorf("%w: discovery decode: %v", oauth.ErrExchange, err)
	}
	g.mu.Lock()
	g.disc, g.discAt = &dd, time.Now()
	g.mu.Unlock()
	return &dd, nil
}

func (g *Provider) getJWKS(ctx context.Context, uri string) (*jwks, error) {
	g.mu.RLock()
	j, at, etag := g.keys, g.keysAt, g.etag
	g.mu.RUnlock()
	if j != nil && time.Since(at) < jwksTTL {
		return j, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && j != nil {
		g.mu.Lock()
		g.keysAt = time.Now()
		g.mu.Unlock()
		return j, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
	}
	var jj jwks
	if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.keys, g.keysAt, g.etag = &jj, time.Now(), resp.Header.Get("ETag")
	g.mu.Unlock()
	return &jj, nil
}

func (g *Provider) rsaKeyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	d, err := g.discovery(ctx)
	if err != nil {
		return nil, err
	}
	set, err := g.getJWKS(ctx, d.JWKSURI)
	if err != nil {
		return nil, err
	}
	for _, k := range set.Keys {
		if k.Kid != kid || !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, err
		}
		e := 65537
		if len(eb) > 0 {
			e = 0
			for _, b := range eb {
				e = e<<8 | int(b)
			}
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
	}
	return nil, errors.New("kid not found")
}
