package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const rateKeyPrefix = "rating-bot:rate:"

// RedisRateLimiter: скользящее окно на sorted set в Redis.
// Нужен, когда запущено несколько экземпляров бота.
// Если Redis недоступен: пропускаем сообщение.
type RedisRateLimiter struct {
	rdb    redis.UniversalClient
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisRateLimiter(rdb redis.UniversalClient, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, now: time.Now}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, userID int64) bool {
	key := rateKeyPrefix + strconv.FormatInt(userID, 10)
	now := rl.now()
	cutoff := now.Add(-rl.window).UnixNano()

	pipe := rl.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member(now)})
	pipe.Expire(ctx, key, rl.window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Redis rate limiter недоступен, пропускаем")
		return true
	}

	// card посчитан до добавления текущего запроса
	return card.Val() < int64(rl.limit)
}

// member уникален даже для запросов в одну наносекунду.
func member(now time.Time) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%d-%s", now.UnixNano(), hex.EncodeToString(b))
}
