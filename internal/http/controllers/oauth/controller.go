// Package oauth contiene el login social de la consola: redirect al
// proveedor y callback que termina en la cookie de sesión del admin.
package oauth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/izzu/internal/http/helpers"
	adminsvc "github.com/dropDatabas3/izzu/internal/http/services/admin"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/oauth"
)

// Config del controller.
type Config struct {
	// ConsoleURL es la base del dashboard ("http://localhost:3000").
	ConsoleURL string
	Cookie     helpers.CookieConfig
}

type Controller struct {
	providers *oauth.Registry
	state     *oauth.StateSigner
	auth      adminsvc.AuthService
	cfg       Config
}

func NewController(providers *oauth.Registry, state *oauth.StateSigner, auth adminsvc.AuthService, cfg Config) *Controller {
	cfg.ConsoleURL = strings.TrimRight(cfg.ConsoleURL, "/")
	return &Controller{providers: providers, state: state, auth: auth, cfg: cfg}
}

// GET /auth/oauth/{provider}
func (c *Controller) Redirect(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("oauth.Redirect"), logger.Provider(name))

	p, err := c.providers.Get(name)
	if err != nil {
		c.fail(w, r, "unknown_provider")
		return
	}
	state, nonce, err := c.state.Issue(name)
	if err != nil {
		log.Error("issue oauth state failed", logger.Err(err))
		c.fail(w, r, "server_error")
		return
	}
	target, err := p.AuthURL(r.Context(), state, nonce)
	if err != nil {
		log.Error("build auth url failed", logger.Err(err))
		c.fail(w, r, "provider_unavailable")
		return
	}
	http.SetCookie(w, oauth.StateCookieFor(state, c.cfg.Cookie.Secure))
	http.Redirect(w, r, target, http.StatusFound)
}

// GET /auth/oauth/{provider}/callback
func (c *Controller) Callback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("oauth.Callback"), logger.Provider(name))
	q := r.URL.Query()

	// la cookie de state se consume siempre
	http.SetCookie(w, oauth.ClearStateCookie(c.cfg.Cookie.Secure))

	if idpErr := strings.TrimSpace(q.Get("error")); idpErr != "" {
		log.Warn("provider returned error", logger.String("error", idpErr))
		c.fail(w, r, "access_denied")
		return
	}

	p, err := c.providers.Get(name)
	if err != nil {
		c.fail(w, r, "unknown_provider")
		return
	}

	var cookieState string
	if ck, err := r.Cookie(oauth.StateCookie); err == nil {
		cookieState = ck.Value
	}
	claims, err := c.state.Verify(cookieState, q.Get("state"), name)
	if err != nil {
		log.Warn("oauth state rejected", logger.Err(err))
		c.fail(w, r, "invalid_state")
		return
	}
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		c.fail(w, r, "missing_code")
		return
	}

	profile, err := p.Exchange(r.Context(), code, claims.Nonce)
	if err != nil {
		log.Warn("oauth exchange failed", logger.Err(err))
		if errors.Is(err, oauth.ErrNoEmail) {
			c.fail(w, r, "no_verified_email")
			return
		}
		c.fail(w, r, "exchange_failed")
		return
	}

	res, err := c.auth.SignIn(r.Context(), adminsvc.SignInInput{
		Email:      profile.Email,
		Name:       profile.Name,
		Provider:   profile.Provider,
		ProviderID: profile.ProviderID,
		Meta:       helpers.Meta(r),
	})
	if err != nil {
		log.Error("admin sign-in failed", logger.Err(err))
		c.fail(w, r, "signin_failed")
		return
	}

	http.SetCookie(w, helpers.BuildCookie(c.cfg.Cookie, res.SessionToken, res.ExpiresAt))
	v := url.Values{}
	v.Set("login", "success")
	v.Set("provider", name)
	http.Redirect(w, r, c.cfg.ConsoleURL+"/?"+v.Encode(), http.StatusFound)
}

func (c *Controller) fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, c.cfg.ConsoleURL+"/login?error="+url.QueryEscape(code), http.StatusFound)
}
