package otp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/rate"
	"github.com/dropDatabas3/izzu/internal/secretstore"
)

func devService(t *testing.T, store secretstore.Store, cfg Config) Service {
	t.Helper()
	cfg.DevMode = true
	return NewService(store, cfg)
}

func TestIssueRedeem_SingleUse(t *testing.T) {
	ctx := context.Background()
	svc := devService(t, secretstore.NewMemory(""), Config{})

	iss, err := svc.Issue(ctx, "  Alice@Example.COM ", ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", iss.Identifier)
	assert.Len(t, iss.Code, 6)
	assert.True(t, iss.DevMode)

	ok, err := svc.Redeem(ctx, "alice@example.com", " "+iss.Code+" ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Redeem(ctx, "alice@example.com", iss.Code)
	require.NoError(t, err)
	assert.False(t, ok, "second redeem must fail")
}

func TestRedeem_ConcurrentExactlyOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	stores := map[string]secretstore.Store{
		"memory": secretstore.NewMemory(""),
		"redis":  secretstore.NewRedisFromClient(rdb, "izzu"),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := devService(t, store, Config{})
			iss, err := svc.Issue(ctx, "bob@example.com", ChannelEmail)
			require.NoError(t, err)

			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 25; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if ok, err := svc.Redeem(ctx, "bob@example.com", iss.Code); err == nil && ok {
						atomic.AddInt32(&wins, 1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins)
		})
	}
}

func TestRedeem_Expired(t *testing.T) {
	ctx := context.Background()
	svc := devService(t, secretstore.NewMemory(""), Config{TTL: 30 * time.Millisecond})

	iss, err := svc.Issue(ctx, "carol@example.com", ChannelEmail)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)

	ok, err := svc.Redeem(ctx, "carol@example.com", iss.Code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIssue_OverwritesPreviousCode(t *testing.T) {
	ctx := context.Background()
	store := secretstore.NewMemory("")
	svc := devService(t, store, Config{})

	require.NoError(t, store.Set(ctx, secretstore.OTPKey("dan@example.com"), "000000", time.Minute))
	iss, err := svc.Issue(ctx, "dan@example.com", ChannelEmail)
	require.NoError(t, err)

	if iss.Code != "000000" {
		ok, _ := svc.Redeem(ctx, "dan@example.com", "000000")
		assert.False(t, ok, "old code must be dead")
	}
	ok, _ := svc.Redeem(ctx, "dan@example.com", iss.Code)
	assert.True(t, ok)
}

func TestRedeem_LeadingZerosAndEmpty(t *testing.T) {
	ctx := context.Background()
	store := secretstore.NewMemory("")
	svc := devService(t, store, Config{})

	require.NoError(t, store.Set(ctx, secretstore.OTPKey("eve@example.com"), "012345", time.Minute))
	ok, _ := svc.Redeem(ctx, "eve@example.com", "12345")
	assert.False(t, ok)
	ok, _ = svc.Redeem(ctx, "eve@example.com", "")
	assert.False(t, ok)
	ok, _ = svc.Redeem(ctx, "eve@example.com", "012345")
	assert.True(t, ok)
}

func TestRedeem_LockoutAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	svc := devService(t, secretstore.NewMemory(""), Config{MaxAttempts: 3})

	iss, err := svc.Issue(ctx, "+1 555 0100", ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, "+15550100", iss.Identifier)

	wrong := "999999"
	if iss.Code == wrong {
		wrong = "888888"
	}
	for i := 0; i < 3; i++ {
		ok, err := svc.Redeem(ctx, "+15550100", wrong)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	ok, err := svc.Redeem(ctx, "+1 555 0100", iss.Code)
	require.NoError(t, err)
	assert.False(t, ok, "code burned after max attempts")
}

type brokenStore struct{ secretstore.Store }

func (brokenStore) Get(context.Context, string) (string, error) { return "", errors.New("conn refused") }
func (brokenStore) Set(context.Context, string, string, time.Duration) error {
	return errors.New("conn refused")
}

func TestUnavailableStore(t *testing.T) {
	ctx := context.Background()
	svc := devService(t, brokenStore{secretstore.NewMemory("")}, Config{})

	_, err := svc.Issue(ctx, "a@b.c", ChannelEmail)
	assert.ErrorIs(t, err, ErrUnavailable)

	ok, err := svc.Redeem(ctx, "a@b.c", "123456")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnavailable)
}

type captureDispatcher struct {
	to, code string
}

func (c *captureDispatcher) Deliver(_ context.Context, to, code string, _ time.Duration) error {
	c.to, c.code = to, code
	return nil
}

func TestIssue_ProductionDispatch(t *testing.T) {
	ctx := context.Background()
	d := &captureDispatcher{}
	svc := NewService(secretstore.NewMemory(""), Config{}, WithDispatcher(ChannelEmail, d))

	iss, err := svc.Issue(ctx, "Frank@Example.com", ChannelEmail)
	require.NoError(t, err)
	assert.Empty(t, iss.Code, "code never returned outside dev mode")
	assert.Equal(t, "frank@example.com", d.to)

	ok, _ := svc.Redeem(ctx, "frank@example.com", d.code)
	assert.True(t, ok)

	_, err = svc.Issue(ctx, "+15550100", ChannelSMS)
	assert.ErrorIs(t, err, ErrUnsupportedChannel)
}

func TestIssue_RateLimited(t *testing.T) {
	ctx := context.Background()
	store := secretstore.NewMemory("")
	svc := NewService(store, Config{DevMode: true, SendLimit: 2, SendWindow: time.Minute},
		WithLimiter(rate.NewPool(store, "rl:")))

	for i := 0; i < 2; i++ {
		_, err := svc.Issue(ctx, "gina@example.com", ChannelEmail)
		require.NoError(t, err)
	}
	_, err := svc.Issue(ctx, "gina@example.com", ChannelEmail)
	assert.ErrorIs(t, err, ErrRateLimited)
}
