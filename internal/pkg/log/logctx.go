// log передает request-scoped *slog.Logger через context.Context:
// транспортный слой кладет логгер с request_id, нижние слои достают его,
// не зная о HTTP.
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into возвращает контекст с привязанным логгером.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From извлекает логгер из контекста; если его там нет — slog.Default(),
// поэтому вызов безопасен в любом месте.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}

	return slog.Default()
}
