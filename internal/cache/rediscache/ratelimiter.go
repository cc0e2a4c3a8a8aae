package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter shared by every instance that talks to the same provider.
type RateLimiter struct {
	c   *redis.Client
	now func() time.Time
}

func NewRateLimiter(addr string) *RateLimiter {
	return &RateLimiter{
		c:   redis.NewClient(&redis.Options{Addr: addr}),
		now: time.Now,
	}
}

// Allow увеличивает счётчик окна для bucket и возвращает (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, bucket string, limit int64, window time.Duration) (bool, int64, error) {
	if window <= 0 {
		window = time.Minute
	}
	start := rl.now().UTC().Truncate(window)
	key := fmt.Sprintf("rl:%s:%d", bucket, start.Unix())

	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// небольшой запас, чтобы ключ пережил границу окна
	pipe.Expire(ctx, key, window+10*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// Wait blocks until the bucket has room or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, bucket string, limit int64, window time.Duration) error {
	for {
		ok, _, err := rl.Allow(ctx, bucket, limit, window)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		next := rl.now().UTC().Truncate(window).Add(window)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(next)):
		}
	}
}
