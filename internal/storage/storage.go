package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (сравнение с учётом регистра).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionStorage управляет слотом refresh-токена пользователя.
type SessionStorage interface {
	// UpdateRefreshToken перезаписывает слот refresh-токена пользователя.
	// Одна операция UPDATE без блокировок: при гонке двух обновлений
	// выживает последняя запись (last-writer-wins — принятая модель).
	// Пустой token освобождает слот.
	UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	// ClearExpiredRefreshTokens освобождает слоты, срок которых истёк к now.
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	SessionStorage
	Close()
}
