package secretstore

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implementa Store sobre go-cache. Un mutex serializa las
// operaciones compuestas (Take, CompareAndDelete, Incr).
type MemoryStore struct {
	mu     sync.Mutex
	c      *gocache.Cache
	prefix string
}

// NewMemory crea un store en memoria; los expirados se limpian cada minuto.
func NewMemory(prefix string) *MemoryStore {
	return &MemoryStore{
		c:      gocache.New(gocache.NoExpiration, time.Minute),
		prefix: prefix,
	}
}

func (s *MemoryStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Set(s.key(key), value, expiration(ttl))
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(s.key(key))
}

func (s *MemoryStore) getLocked(k string) (string, error) {
	v, ok := s.c.Get(k)
	if !ok {
		return "", ErrNotFound
	}
	str, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return str, nil
}

func (s *MemoryStore) Take(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	v, err := s.getLocked(k)
	if err != nil {
		return "", err
	}
	s.c.Delete(k)
	return v, nil
}

func (s *MemoryStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	v, err := s.getLocked(k)
	if err != nil || v != expected {
		return false, nil
	}
	s.c.Delete(k)
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Delete(s.key(key))
	return nil
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)

	v, exp, ok := s.c.GetWithExpiration(k)
	n, isInt := v.(int64)
	remaining := time.Until(exp)
	if !ok || !isInt || (!exp.IsZero() && remaining <= 0) {
		s.c.Set(k, int64(1), expiration(ttl))
		return 1, ttl, nil
	}
	n++
	if exp.IsZero() {
		s.c.Set(k, n, gocache.NoExpiration)
		return n, 0, nil
	}
	s.c.Set(k, n, remaining)
	return n, remaining, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Flush()
	return nil
}
