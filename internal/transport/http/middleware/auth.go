package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/go-session-service/internal/errors"
	"github.com/pribylovaa/go-session-service/internal/service"
)

type userIDKey struct{}

// AccessValidator проверяет access-токен и возвращает его субъект.
type AccessValidator interface {
	ValidateAccessToken(accessToken string) (uuid.UUID, error)
}

// RequireAuth — guard защищённых маршрутов.
//
// Шаги:
//  1. Authorization отсутствует или не в форме "Bearer <token>" -> 401;
//  2. токен проверяется валидатором (подпись, срок, вид) -> при любом
//     отказе 401;
//  3. при успехе ID пользователя кладётся в контекст (UserIDFrom) и
//     управление передаётся обёрнутому обработчику.
//
// Guard не ходит в хранилище: валидность access-токена чисто
// криптографическая.
func RequireAuth(v AccessValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apierrors.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			userID, err := v.ValidateAccessToken(token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFrom возвращает ID пользователя, положенный guard-ом в контекст.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}

// bearerToken извлекает токен из Authorization: Bearer <token> ("" — если
// заголовок отсутствует или сломан).
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) || len(auth) <= len(prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}
