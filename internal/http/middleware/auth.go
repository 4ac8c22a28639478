package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/bondia/internal/errors"
	"github.com/pribylovaa/bondia/internal/pkg/identity"
	logctx "github.com/pribylovaa/bondia/internal/pkg/log"
)

// TokenValidator проверяет access-токен.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken string) (uuid.UUID, string, error)
}

// Authenticate извлекает Bearer-токен из Authorization и, если он валиден,
// кладёт идентичность пользователя в контекст (identity.Into), а user_id — в логгер.
//
// Поведение:
//   - заголовка нет — запрос идёт дальше анонимным (защищённые операции
//     сами вернут 401);
//   - заголовок есть, но токен невалиден/просрочен — сразу 401.
func Authenticate(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			uid, _, err := v.ValidateToken(r.Context(), token)
			if err != nil {
				logctx.From(r.Context()).Warn("access token rejected", "err", err)
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := identity.Into(r.Context(), uid)
			ctx = logctx.With(ctx, "user_id", uid.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(auth string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}

	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}
