package ratelimit

import (
	"context"
	"sync"
	"time"
)

// maxKeys — мягкий потолок количества ключей в памяти; при превышении
// удаляются ключи без свежих событий.
const maxKeys = 5000

// MemoryLimiter — in-memory реализация скользящего окна: срез отметок
// времени на ключ под общим мьютексом. Используется в тестах и как
// fallback, когда Redis не сконфигурирован.
type MemoryLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewMemoryLimiter создаёт пустой in-memory лимитер.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

// Allow возвращает true и записывает событие, если событий в окне меньше limit.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := l.now().UTC()
	threshold := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hits[key]
	filtered := hits[:0]
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}

	if len(filtered) >= limit {
		l.hits[key] = filtered
		return false, nil
	}

	l.hits[key] = append(filtered, now)

	if len(l.hits) > maxKeys {
		for k, v := range l.hits {
			if len(v) == 0 || v[len(v)-1].Before(threshold) {
				delete(l.hits, k)
			}
		}
	}

	return true, nil
}

func (l *MemoryLimiter) Close() error { return nil }

var _ Limiter = (*MemoryLimiter)(nil)
