// log связывает request-scoped *slog.Logger с context.Context, чтобы
// сервисный слой логировал с атрибутами запроса (request_id) без явного
// параметра-логгера.
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

// From возвращает логгер запроса. Если в контексте его нет (или по ключу
// лежит не *slog.Logger), работает slog.Default().
func From(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok || l == nil {
		return slog.Default()
	}

	return l
}
