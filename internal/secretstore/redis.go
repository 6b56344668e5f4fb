package secretstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndDelete borra KEYS[1] solo si su valor es ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implementa Store sobre Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis conecta y verifica con PING.
func NewRedis(cfg Config) (*RedisStore, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("secretstore: redis ping failed: %w", err)
	}
	return NewRedisFromClient(rdb, cfg.Prefix), nil
}

// NewRedisFromClient envuelve un cliente existente.
func NewRedisFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Client expone el cliente subyacente (lo comparte la cola de webhooks).
func (s *RedisStore) Client() *redis.Client { return s.client }

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Take(ctx context.Context, key string) (string, error) {
	v, err := s.client.GetDel(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.client, []string{s.key(key)}, expected).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Incr: fixed window con INCR + PTTL en un TxPipeline, EXPIRE en el primer hit.
func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	k := s.key(key)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	remaining := pttl.Val()
	if incr.Val() == 1 || remaining < 0 {
		if err := s.client.PExpire(ctx, k, ttl).Err(); err != nil {
			return 0, 0, err
		}
		remaining = ttl
	}
	return incr.Val(), remaining, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
