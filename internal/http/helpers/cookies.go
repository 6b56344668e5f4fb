package helpers

import (
	"net/http"
	"strings"
	"time"
)

// CookieConfig describe la cookie de sesión del panel.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite string
	Secure   bool
}

func ParseSameSite(s string) http.SameSite {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// BuildCookie arma una cookie httpOnly con path "/" que vence en expires.
func BuildCookie(cfg CookieConfig, value string, expires time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: ParseSameSite(cfg.SameSite),
	}
	if strings.TrimSpace(cfg.Domain) != "" {
		ck.Domain = cfg.Domain
	}
	if !expires.IsZero() {
		ck.Expires = expires.UTC()
		if secs := int(time.Until(expires).Seconds()); secs > 0 {
			ck.MaxAge = secs
		}
	}
	return ck
}

func BuildDeletionCookie(cfg CookieConfig) *http.Cookie {
	ck := &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: ParseSameSite(cfg.SameSite),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
	}
	if strings.TrimSpace(cfg.Domain) != "" {
		ck.Domain = cfg.Domain
	}
	return ck
}
