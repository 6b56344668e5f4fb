package rate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MultiLimiter permite límites distintos por endpoint sobre el mismo Counter.
type MultiLimiter interface {
	AllowWithLimits(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Pool cachea un FixedWindow por combinación limit+window.
type Pool struct {
	counter Counter
	prefix  string
	mu      sync.RWMutex
	// limiters por configuración
	limiters map[string]*FixedWindow
}

func NewPool(c Counter, prefix string) *Pool {
	if prefix == "" {
		prefix = "rl:"
	}
	return &Pool{
		counter:  c,
		prefix:   prefix,
		limiters: make(map[string]*FixedWindow),
	}
}

func (p *Pool) AllowWithLimits(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	configKey := fmt.Sprintf("%d:%s", limit, window.String())

	p.mu.RLock()
	limiter, exists := p.limiters[configKey]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// double-check
		if limiter, exists = p.limiters[configKey]; !exists {
			limiter = NewFixedWindow(p.counter, p.prefix, limit, window)
			p.limiters[configKey] = limiter
		}
		p.mu.Unlock()
	}
	return limiter.Allow(ctx, key)
}

// Scoped fija limit+window para un scope y expone la interfaz Limiter,
// que es lo que consume el middleware HTTP.
type Scoped struct {
	Pool   MultiLimiter
	Scope  string
	Limit  int
	Window time.Duration
}

func (s Scoped) Allow(ctx context.Context, key string) (Result, error) {
	return s.Pool.AllowWithLimits(ctx, s.Scope+":"+key, s.Limit, s.Window)
}
