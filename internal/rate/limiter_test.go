package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/secretstore"
)

func TestFixedWindow_BlocksAfterMax(t *testing.T) {
	ctx := context.Background()
	l := NewFixedWindow(secretstore.NewMemory(""), "", 3, time.Minute)

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(3-i), res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.True(t, res.RetryAfter > 0)

	// otra key no comparte ventana
	res, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("down")
}

func TestFixedWindow_PropagatesCounterError(t *testing.T) {
	_, err := NewFixedWindow(failingCounter{}, "", 1, time.Second).Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestPool_ScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	pool := NewPool(secretstore.NewMemory(""), "rl:")

	otp := Scoped{Pool: pool, Scope: "otp", Limit: 1, Window: time.Minute}
	sdk := Scoped{Pool: pool, Scope: "sdk", Limit: 1, Window: time.Minute}

	res, _ := otp.Allow(ctx, "a@b.c")
	assert.True(t, res.Allowed)
	res, _ = otp.Allow(ctx, "a@b.c")
	assert.False(t, res.Allowed)

	res, _ = sdk.Allow(ctx, "a@b.c")
	assert.True(t, res.Allowed)
}
