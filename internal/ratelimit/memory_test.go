package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// limiterAt — лимитер с управляемыми часами.
func limiterAt(start time.Time) (*MemoryLimiter, *time.Time) {
	now := start
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestMemoryLimiter_AllowsUpToLimit(t *testing.T) {
	t.Parallel()

	l, _ := limiterAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(ctx, "login:user@example.com", 5, 15*time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "attempt %d must pass", i+1)
	}

	ok, err := l.Allow(ctx, "login:user@example.com", 5, 15*time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "attempt over the limit must be denied")
}

func TestMemoryLimiter_WindowSlides(t *testing.T) {
	t.Parallel()

	l, now := limiterAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "register:user@example.com", 3, time.Hour)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := l.Allow(ctx, "register:user@example.com", 3, time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	// Через час старые события выпадают из окна.
	*now = now.Add(time.Hour + time.Second)

	ok, err = l.Allow(ctx, "register:user@example.com", 3, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryLimiter_DeniedAttemptNotRecorded(t *testing.T) {
	t.Parallel()

	l, now := limiterAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _ := l.Allow(ctx, "k", 2, time.Minute)
		require.True(t, ok)
	}

	// Отказы не съедают бюджет: после истечения окна снова доступны все попытки.
	for i := 0; i < 10; i++ {
		ok, _ := l.Allow(ctx, "k", 2, time.Minute)
		require.False(t, ok)
	}

	*now = now.Add(time.Minute + time.Second)

	ok, _ := l.Allow(ctx, "k", 2, time.Minute)
	require.True(t, ok)
	ok, _ = l.Allow(ctx, "k", 2, time.Minute)
	require.True(t, ok)
}

func TestMemoryLimiter_KeysIndependent(t *testing.T) {
	t.Parallel()

	l, _ := limiterAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	ok, err := l.Allow(ctx, Key("login", "a@example.com"), 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Allow(ctx, Key("login", "a@example.com"), 1, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	// Другой email и другое действие имеют собственные бюджеты.
	ok, err = l.Allow(ctx, Key("login", "b@example.com"), 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Allow(ctx, Key("register", "a@example.com"), 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKey_Format(t *testing.T) {
	t.Parallel()

	require.Equal(t, "login:user@example.com", Key("login", "user@example.com"))
}
