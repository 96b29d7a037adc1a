// ratelimit реализует счетчик со скользящим окном для ограничения
// частоты чувствительных операций (регистрация, вход, сброс пароля).
//
// Ключи независимы: бюджет register:<email> не влияет на login:<email>.
// Событие фиксируется только если операция разрешена.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter — контракт rate-limit'а со скользящим окном.
type Limiter interface {
	// Allow возвращает true и фиксирует событие, если по ключу key за
	// последние window секунд накоплено меньше limit событий.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Close освобождает ресурсы бэкенда.
	Close() error
}

// Key строит ключ лимитера вида "<action>:<identity>".
func Key(action, identity string) string {
	return fmt.Sprintf("%s:%s", action, identity)
}
