// Package rate implementa rate limiting fixed-window sobre el contador
// atómico del Secret Store (Redis o memoria).
package rate

import (
	"context"
	"strings"
	"time"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Counter es la primitiva de ventana: incrementa key y fija el TTL en el
// primer hit. secretstore.Store la implementa.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
}

// FixedWindow: INCR + EXPIRE sobre Counter.
type FixedWindow struct {
	Counter Counter
	Prefix  string
	Max     int64
	Window  time.Duration
}

func NewFixedWindow(c Counter, prefix string, max int, window time.Duration) *FixedWindow {
	if prefix == "" {
		prefix = "rl:"
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindow{
		Counter: c,
		Prefix:  prefix,
		Max:     int64(max),
		Window:  window,
	}
}

func (l *FixedWindow) Allow(ctx context.Context, key string) (Result, error) {
	k := l.Prefix + strings.ReplaceAll(key, " ", "_")

	hits, ttl, err := l.Counter.Incr(ctx, k, l.Window)
	if err != nil {
		return Result{}, err
	}

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl
		if res.RetryAfter <= 0 {
			res.RetryAfter = l.Window
		}
	}
	return res, nil
}
