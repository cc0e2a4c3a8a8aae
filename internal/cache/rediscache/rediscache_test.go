package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSetDel(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "dispatch:1", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "trip:2:packages", []byte("w"), time.Minute))

	b, ok, err := c.Get(ctx, "dispatch:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	require.NoError(t, c.Del(ctx, "dispatch:1", "trip:2:packages", "missing"))
	_, ok, err = c.Get(ctx, "dispatch:1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Del(ctx))
	require.NoError(t, c.Ping(ctx))
}

func TestRedisCache_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())
	fixed := time.Date(2026, 10, 16, 12, 0, 30, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "whatsapp", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "whatsapp", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "whatsapp", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)

	// следующее окно, счётчик с нуля
	fixed = fixed.Add(time.Minute)
	ok, n, _ = rl.Allow(ctx, "whatsapp", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(1), n)
}

func TestRateLimiter_WaitContextCanceled(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())

	ctx := context.Background()
	_, _, err := rl.Allow(ctx, "b", 0, time.Hour)
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, rl.Wait(cctx, "b", 0, time.Hour), context.Canceled)
}
