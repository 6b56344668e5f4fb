// Package github implementa el login con GitHub. GitHub no emite id_token:
// el perfil se arma con /user y /user/emails usando el access token.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/izzu/internal/oauth"
)

const (
	defaultAuthURL  = "https://github.com/login/oauth/authorize"
	defaultTokenURL = "https://github.com/login/oauth/access_token"
	defaultAPIBase  = "https://api.github.com"
)

// Config del cliente. Los endpoints vacíos usan los de github.com.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL  string
	TokenURL string
	APIBase  string
}

type Provider struct {
	conf    *oauth2.Config
	apiBase string
	http    *http.Client
}

func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"user:email", "read:user"}
	}
	authURL, tokenURL, apiBase := cfg.AuthURL, cfg.TokenURL, cfg.APIBase
	if authURL == "" {
		authURL = defaultAuthURL
	}
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Provider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: strings.TrimRight(apiBase, "/"),
		http:    &http.Client{Timeout: oauth.HTTPTimeout},
	}
}

func (p *Provider) Name() string { return "github" }

// AuthURL: GitHub no soporta nonce; el nonce ya viaja dentro del state firmado.
func (p *Provider) AuthURL(_ context.Context, state, _ string) (string, error) {
	return p.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("allow_signup", "true")), nil
}

func (p *Provider) Exchange(ctx context.Context, code, _ string) (*oauth.Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.http)
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oauth.ErrExchange, err)
	}

	var u userInfo
	if err := p.getJSON(ctx, tok.AccessToken, "/user", &u); err != nil {
		return nil, err
	}
	email, verified := u.Email, false
	if e, err := p.primaryEmail(ctx, tok.AccessToken); err == nil {
		email, verified = e.Email, e.Verified
	} else if email == "" {
		return nil, err
	}
	if email == "" {
		return nil, oauth.ErrNoEmail
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	return &oauth.Profile{
		Provider:      p.Name(),
		ProviderID:    strconv.FormatInt(u.ID, 10),
		Email:         strings.ToLower(email),
		EmailVerified: verified,
		Name:          name,
		AvatarURL:     u.AvatarURL,
	}, nil
}

type userInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// primaryEmail prioriza primary+verified, luego cualquier verificado.
func (p *Provider) primaryEmail(ctx context.Context, accessToken string) (*emailInfo, error) {
	var emails []emailInfo
	if err := p.getJSON(ctx, accessToken, "/user/emails", &emails); err != nil {
		return nil, err
	}
	for i := range emails {
		if emails[i].Primary && emails[i].Verified {
			return &emails[i], nil
		}
	}
	for i := range emails {
		if emails[i].Verified {
			return &emails[i], nil
		}
	}
	return nil, oauth.ErrNoEmail
}

func (p *Provider) getJSON(ctx context.Context, accessToken, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", oauth.ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: github api %s status %d", oauth.ErrExchange, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", oauth.ErrExchange, path, err)
	}
	return nil
}
