package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-service/internal/models"
	"github.com/pribylovaa/go-session-service/internal/pkg/log"
)

// sessionClaims — полезная нагрузка обоих видов токенов.
// Kind дублирует вид токена внутри подписанной части: даже при совпадении
// секретов (ошибка конфигурации) access-токен не пройдёт как refresh и наоборот.
type sessionClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// secretFor возвращает секрет подписи для вида токена.
func (s *Service) secretFor(kind models.TokenKind) []byte {
	if kind == models.KindRefresh {
		return []byte(s.cfg.RefreshSecret)
	}

	return []byte(s.cfg.AccessSecret)
}

// ttlFor возвращает срок жизни для вида токена.
func (s *Service) ttlFor(kind models.TokenKind) time.Duration {
	if kind == models.KindRefresh {
		return s.cfg.RefreshTokenTTL
	}

	return s.cfg.AccessTokenTTL
}

// generateToken выпускает подписанный токен заданного вида.
// Чистая функция идентичности и часов: без побочных эффектов и без хранилища.
func (s *Service) generateToken(ctx context.Context, kind models.TokenKind, userID uuid.UUID, now time.Time) (string, time.Time, error) {
	const op = "service.token.generateToken"

	lg := log.From(ctx)

	expiresAt := now.Add(s.ttlFor(kind))
	claims := sessionClaims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			// jti гарантирует уникальность токена: без него две ротации в одну
			// секунду дали бы побитово одинаковый refresh и сломали вытеснение.
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretFor(kind))
	if err != nil {
		lg.Error("token_sign_failed",
			slog.String("op", op),
			slog.String("kind", string(kind)),
			slog.String("err", err.Error()),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, expiresAt, nil
}

// parseToken проверяет токен заданного вида и возвращает субъект.
// Любая причина отказа, кроме истечения срока, неразличима для вызывающего
// (fail-closed: единый ErrInvalidToken, чтобы не давать oracle по подписи).
func (s *Service) parseToken(kind models.TokenKind, tokenStr string) (uuid.UUID, error) {
	const op = "service.token.parseToken"

	token, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return s.secretFor(kind), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.Kind != string(kind) {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return uid, nil
}

// ValidateAccessToken проверяет access-токен и возвращает ID пользователя.
// Хранилище не участвует: валидность чисто криптографическая + по времени,
// поэтому короткий AccessTokenTTL ограничивает окно неотзываемости.
func (s *Service) ValidateAccessToken(accessToken string) (uuid.UUID, error) {
	const op = "service.token.ValidateAccessToken"

	uid, err := s.parseToken(models.KindAccess, accessToken)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return uid, nil
}

// issueTokenPair выпускает новую пару access+refresh и перезаписывает слот
// пользователя новым refresh-токеном. Перезапись одна и атомарна на уровне
// строки: предыдущий refresh-токен отзывается без окна повторного использования.
func (s *Service) issueTokenPair(ctx context.Context, userID uuid.UUID) (*models.TokenPair, error) {
	const op = "service.token.issueTokenPair"

	lg := log.From(ctx)

	now := time.Now().UTC()

	accessToken, accessExp, err := s.generateToken(ctx, models.KindAccess, userID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, refreshExp, err := s.generateToken(ctx, models.KindRefresh, userID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdateRefreshToken(ctx, userID, refreshToken, refreshExp); err != nil {
		lg.Error("update_refresh_slot_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Write-through кэш. Источник истины — хранилище, но запись в кэше
	// старше слота воскресила бы вытесненный токен: при неудачном Set
	// запись обязана быть удалена, иначе операция не может завершиться.
	if s.rcache != nil {
		if err := s.rcache.Set(ctx, userID, refreshToken, s.cfg.RefreshTokenTTL); err != nil {
			lg.Warn("refresh_cache_set_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)

			if err := s.rcache.Invalidate(ctx, userID); err != nil {
				lg.Error("refresh_cache_invalidate_failed",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// currentRefreshToken возвращает токен, лежащий сейчас в слоте пользователя.
// Сначала кэш (fast-path), при промахе или ошибке кэша — хранилище.
func (s *Service) currentRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "service.token.currentRefreshToken"

	lg := log.From(ctx)

	if s.rcache != nil {
		token, ok, err := s.rcache.Get(ctx, userID)
		if err != nil {
			lg.Warn("refresh_cache_get_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else if ok {
			return token, nil
		}
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return user.RefreshToken, nil
}
