// cache хранит короткоживущие коды подтверждения e-mail в Redis.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// VerificationCodes — минимальный контракт хранилища кодов подтверждения.
type VerificationCodes interface {
	// Set сохраняет код для пользователя с TTL.
	Set(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error
	// Get возвращает код и признак его наличия.
	Get(ctx context.Context, userID uuid.UUID) (string, bool, error)
	// Delete удаляет код (после успешного подтверждения).
	Delete(ctx context.Context, userID uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCodes struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCodes создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:verify:".
func NewRedisCodes(redisURL, prefix string) (VerificationCodes, error) {
	if prefix == "" {
		prefix = "auth:verify:"
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

	return &redisCodes{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCodes) key(userID uuid.UUID) string { return c.prefix + userID.String() }

func (c *redisCodes) Set(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(userID), code, ttl).Err()
}

func (c *redisCodes) Get(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	code, err := c.rdb.Get(ctx, c.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, err
	}

	return code, true, nil
}

func (c *redisCodes) Delete(ctx context.Context, userID uuid.UUID) error {
	return c.rdb.Del(ctx, c.key(userID)).Err()
}

func (c *redisCodes) Close() error { return c.rdb.Close() }
