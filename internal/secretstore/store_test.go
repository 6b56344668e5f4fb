package secretstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drivers devuelve ambos backends; advance simula el paso del tiempo.
type driver struct {
	name    string
	store   Store
	advance func(time.Duration)
}

func drivers(t *testing.T) []driver {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return []driver{
		{name: "memory", store: NewMemory("test"), advance: time.Sleep},
		{name: "redis", store: NewRedisFromClient(rdb, "test"), advance: mr.FastForward},
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			s := d.store
			_, err := s.Get(ctx, "missing")
			assert.True(t, IsNotFound(err))

			require.NoError(t, s.Set(ctx, OTPKey("a@b.c"), "123456", time.Minute))
			v, err := s.Get(ctx, OTPKey("a@b.c"))
			require.NoError(t, err)
			assert.Equal(t, "123456", v)

			// sobrescribe
			require.NoError(t, s.Set(ctx, OTPKey("a@b.c"), "654321", time.Minute))
			v, _ = s.Get(ctx, OTPKey("a@b.c"))
			assert.Equal(t, "654321", v)

			require.NoError(t, s.Delete(ctx, OTPKey("a@b.c")))
			_, err = s.Get(ctx, OTPKey("a@b.c"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			require.NoError(t, d.store.Set(ctx, "k", "v", 50*time.Millisecond))
			d.advance(80 * time.Millisecond)
			_, err := d.store.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_TakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			require.NoError(t, d.store.Set(ctx, AuthRequestKey("r1"), "env", time.Minute))

			v, err := d.store.Take(ctx, AuthRequestKey("r1"))
			require.NoError(t, err)
			assert.Equal(t, "env", v)

			_, err = d.store.Take(ctx, AuthRequestKey("r1"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_CompareAndDelete_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			require.NoError(t, d.store.Set(ctx, "otp:x", "111111", time.Minute))

			ok, err := d.store.CompareAndDelete(ctx, "otp:x", "222222")
			require.NoError(t, err)
			assert.False(t, ok, "wrong value must not delete")

			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := d.store.CompareAndDelete(ctx, "otp:x", "111111")
					if err == nil && ok {
						atomic.AddInt32(&wins, 1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins)

			_, err = d.store.Get(ctx, "otp:x")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_IncrWindow(t *testing.T) {
	ctx := context.Background()
	for _, d := range drivers(t) {
		t.Run(d.name, func(t *testing.T) {
			n, ttl, err := d.store.Incr(ctx, "rl:ip:1", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			assert.Equal(t, time.Minute, ttl)

			n, ttl, err = d.store.Incr(ctx, "rl:ip:1", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
			assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl=%s", ttl)
		})
	}
}

func TestNew_Drivers(t *testing.T) {
	s, err := New(Config{Driver: "memory"})
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))

	_, err = New(Config{Driver: "etcd"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rs, err := New(Config{Driver: "redis", Addr: mr.Addr(), Prefix: "izzu"})
	require.NoError(t, err)
	defer rs.Close()
	require.NoError(t, rs.Set(context.Background(), "k", "v", time.Minute))
	assert.True(t, mr.Exists("izzu:k"))
}
