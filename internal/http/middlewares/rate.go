package middlewares

import (
	"net/http"
	"strconv"
	"time"

	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/rate"
)

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPOnlyRateKey limita por IP de cliente.
func IPOnlyRateKey(r *http.Request) string { return helpers.ClientIP(r) }

// IPPathRateKey limita por IP y path, sin leer el body.
func IPPathRateKey(r *http.Request) string { return helpers.ClientIP(r) + "|" + r.URL.Path }


// RateLimitConfig configura el middleware de rate limiting.
type RateLimitConfig struct {
	Limiter   rate.Limiter
	Limit     int // solo para X-RateLimit-Limit
	KeyFunc   RateKeyFunc
	Whitelist []string
}

// WithRateLimit rechaza con 429 cuando la ventana se agota. Si el limiter
// falla el request pasa: el store de contadores no debe tumbar el login.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPPathRateKey
	}
	whitelist := make(map[string]struct{}, len(cfg.Whitelist))
	for _, p := range cfg.Whitelist {
		whitelist[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := whitelist[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), cfg.KeyFunc(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable",
					logger.Layer("middleware"), logger.Op("rate_limit"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if cfg.Limit > 0 {
				h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			}
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if res.WindowTTL > 0 {
				h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.WindowTTL).Unix(), 10))
			}
			if !res.Allowed {
				secs := int(res.RetryAfter.Round(time.Second).Seconds())
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
