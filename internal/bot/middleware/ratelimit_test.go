package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, rl.Allow(ctx, 1))
	assert.True(t, rl.Allow(ctx, 1))
	assert.False(t, rl.Allow(ctx, 1))
	assert.True(t, rl.Allow(ctx, 2), "лимит у каждого свой")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.Allow(ctx, 1))
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	rl := NewRedisRateLimiter(rdb, 1, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(context.Background(), 1))
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "привет", truncate("привет", 10))
	assert.Equal(t, "при...", truncate("привет", 3))
}
