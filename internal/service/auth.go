package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-session-service/internal/models"
	"github.com/pribylovaa/go-session-service/internal/pkg/log"
	"github.com/pribylovaa/go-session-service/internal/pkg/redact"
	"github.com/pribylovaa/go-session-service/internal/storage"
)

// RegisterUser регистрирует нового пользователя и возвращает его ID.
// Токены при регистрации не выпускаются: сессия начинается только с логина.
// Email сохраняется как есть, без нормализации регистра.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (uuid.UUID, error) {
	const op = "service.auth.RegisterUser"

	lg := log.From(ctx)

	if email == "" {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmptyEmail)
	}

	if password == "" {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if _, err := s.storage.UserByEmail(ctx, email); err == nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	} else if !errors.Is(err, storage.ErrNotFound) {
		lg.Error("user_lookup_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		lg.Error("password_hash_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		// Гонка двух регистраций на один email: уникальный индекс решает.
		if errors.Is(err, storage.ErrAlreadyExists) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		lg.Error("save_user_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return user.ID, nil
}

// LoginUser аутентифицирует пользователя и выпускает новую пару токенов.
// Выпуск перезаписывает слот refresh-токена: прежняя сессия пользователя
// отзывается.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.LoginUser"

	lg := log.From(ctx)

	if email == "" {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmptyEmail)
	}

	if password == "" {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		lg.Error("user_lookup_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := checkPassword(user.PasswordHash, password); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_logged_in",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return pair, user.ID, nil
}

// RefreshSession ротирует сессию по предъявленному refresh-токену.
//
// Порядок проверок:
//  1. криптографическая валидность и вид токена (подпись, срок, kind);
//  2. существование пользователя;
//  3. побитовое совпадение с токеном в слоте — любой другой токен, включая
//     собственный, вытесненный более поздней ротацией, считается отозванным.
//
// Причина отказа различима только здесь (для логов); транспорт на этом пути
// отвечает единообразно.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.RefreshSession"

	lg := log.From(ctx)

	if refreshToken == "" {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, err := s.parseToken(models.KindRefresh, refreshToken)
	if err != nil {
		lg.Warn("refresh_denied",
			slog.String("op", op),
			slog.String("reason", "token_parse"),
			slog.String("err", err.Error()),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	current, err := s.currentRefreshToken(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_denied",
				slog.String("op", op),
				slog.String("reason", "user_not_found"),
				slog.String("user_id", userID.String()),
			)
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		lg.Error("refresh_slot_read_failed",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("err", err.Error()),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if subtle.ConstantTimeCompare([]byte(current), []byte(refreshToken)) != 1 {
		lg.Warn("refresh_denied",
			slog.String("op", op),
			slog.String("reason", "slot_mismatch"),
			slog.String("user_id", userID.String()),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	pair, err := s.issueTokenPair(ctx, userID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("session_refreshed",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	return pair, userID, nil
}

// hashPassword возвращает bcrypt-хэш пароля.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// checkPassword сравнивает пароль с bcrypt-хэшем.
func checkPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
