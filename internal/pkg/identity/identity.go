// identity хранит идентификатор аутентифицированного пользователя в context.Context.
// Значение кладёт HTTP-middleware после успешной проверки access-токена;
// сервисный слой читает его через From и не доверяет user_id из тела запроса.
package identity

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Into кладёт идентификатор пользователя в контекст.
func Into(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// From возвращает идентификатор текущего пользователя.
// ok == false, если пользователь не аутентифицирован (или положен uuid.Nil).
func From(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}

	return id, true
}
