// Package oauth define el contrato común de los proveedores sociales usados
// por la consola de administración y el token de estado firmado que viaja
// entre el redirect y el callback.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/izzu/internal/security/token"
)

var (
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	ErrInvalidState    = errors.New("oauth: invalid state")
	ErrExchange        = errors.New("oauth: code exchange failed")
	ErrNoEmail         = errors.New("oauth: provider returned no verified email")
)

const (
	StateCookie  = "oauth_state"
	StateTTL     = 10 * time.Minute
	HTTPTimeout  = 10 * time.Second
	stateIssuer  = "izzu-oauth"
	nonceEntropy = 16
)

// Profile es lo mínimo que el resolver de identidades necesita del proveedor.
type Profile struct {
	Provider      string
	ProviderID    string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
}

// Provider es un proveedor OAuth2 / OIDC.
type Provider interface {
	Name() string
	AuthURL(ctx context.Context, state, nonce string) (string, error)
	Exchange(ctx context.Context, code, nonce string) (*Profile, error)
}

// Registry indexa proveedores habilitados por nombre.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names devuelve los proveedores habilitados en orden estable.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// StateClaims viaja firmado en la cookie y en el query param state.
type StateClaims struct {
	Provider string `json:"provider"`
	Nonce    string `json:"nonce"`
	jwtv5.RegisteredClaims
}

// StateSigner firma y valida el token de estado (HS256).
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateSigner(secret []byte) *StateSigner {
	return &StateSigner{secret: secret, ttl: StateTTL, now: time.Now}
}

// Issue genera un state nuevo para el proveedor. Devuelve el token y el nonce.
func (s *StateSigner) Issue(provider string) (string, string, error) {
	nonce, err := token.GenerateOpaqueToken(nonceEntropy)
	if err != nil {
		return "", "", err
	}
	now := s.now()
	claims := StateClaims{
		Provider: provider,
		Nonce:    nonce,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    stateIssuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return signed, nonce, nil
}

// Verify exige cookie == query, firma válida, no expirado y proveedor coincidente.
func (s *StateSigner) Verify(cookieState, queryState, provider string) (*StateClaims, error) {
	if cookieState == "" || queryState == "" || cookieState != queryState {
		return nil, ErrInvalidState
	}
	var claims StateClaims
	_, err := jwtv5.ParseWithClaims(queryState, &claims, func(t *jwtv5.Token) (any, error) {
		return s.secret, nil
	},
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(stateIssuer),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Provider != provider {
		return nil, ErrInvalidState
	}
	return &claims, nil
}

// StateCookieFor arma la cookie de estado; secure se activa fuera de dev.
func StateCookieFor(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(StateTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearStateCookie borra la cookie una vez consumido el callback.
func ClearStateCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
