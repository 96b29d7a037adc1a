package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisLimiter struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisLimiter создаёт лимитер поверх Redis из URL
// (например, redis://:pass@host:6379/0). Если prefix пустой —
// используется "auth:rl:".
func NewRedisLimiter(redisURL, prefix string) (Limiter, error) {
	if prefix == "" {
		prefix = "auth:rl:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisLimiter{rdb: rdb, prefix: prefix}, nil
}

func (l *redisLimiter) key(k string) string { return l.prefix + k }

// Allow хранит события как ZSET: member — уникальный id события,
// score — unix-время. Окно поддерживается удалением score'ов старше
// now-window. Подсчет и запись выполняются двумя обращениями, поэтому
// на гонках возможен небольшой перебор сверх limit.
func (l *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UTC()
	windowStart := now.Add(-window)
	k := l.key(key)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	card := pipe.ZCard(ctx, k)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if card.Val() >= int64(limit) {
		return false, nil
	}

	add := l.rdb.TxPipeline()
	add.ZAdd(ctx, k, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	add.Expire(ctx, k, window)

	if _, err := add.Exec(ctx); err != nil {
		return false, err
	}

	return true, nil
}

func (l *redisLimiter) Close() error { return l.rdb.Close() }
