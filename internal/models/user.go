package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись пользователя.
//
// Описание:
//   - Email хранится и сравнивается с учётом регистра (как прислал клиент);
//   - PasswordHash — bcrypt-хэш, исходный пароль нигде не сохраняется;
//   - RefreshToken — единственный слот refresh-токена пользователя:
//     пустая строка означает отсутствие активной сессии. Любая выдача новой
//     пары токенов перезаписывает слот и тем самым отзывает предыдущий
//     refresh-токен (одна активная сессия на аккаунт);
//   - RefreshExpiresAt — момент истечения токена в слоте (UTC); используется
//     только фоновой очисткой, валидность токена определяется его подписью.
type User struct {
	ID               uuid.UUID
	Email            string
	PasswordHash     string
	RefreshToken     string
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
