// service содержит бизнес-логику сервиса сессий:
// регистрацию/аутентификацию пользователей, выпуск/проверку пары
// access/refresh-токенов и ротацию refresh-токена через единственный
// слот на пользователя (одна активная сессия на аккаунт).
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Конкурентные ротации одного пользователя гонятся за слотом без
//     блокировок: выживает последняя запись (last-writer-wins). Это принятая
//     модель одиночной сессии, а не дефект.
//   - Ошибки возвращаются и далее маппятся транспортом на HTTP-статусы
//     (см. комментарии к переменным ошибок ниже). На пути ротации транспорт
//     схлопывает все причины отказа в единый пустой ответ.
package service

import (
	"errors"

	"github.com/pribylovaa/go-session-service/internal/cache"
	"github.com/pribylovaa/go-session-service/internal/config"
	"github.com/pribylovaa/go-session-service/internal/storage"
)

var (
	// ErrEmptyEmail — email не передан. Транспорт: 400.
	ErrEmptyEmail = errors.New("email is empty")

	// ErrEmptyPassword — пароль не передан. Транспорт: 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrEmailTaken — e-mail уже занят другим пользователем. Транспорт: 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrUserNotFound — пользователь с таким email не зарегистрирован.
	// Транспорт: 404 на пути логина (oracle-риска нет: self-service поток).
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials — пароль не совпал с хэшем. Транспорт: 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен некорректен по формату/подписи/виду или его
	// субъект не существует. На пути ротации схлопывается в пустой ответ.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — refresh-токен вытеснен из слота более поздней
	// ротацией и недействителен независимо от срока.
	ErrTokenRevoked = errors.New("token revoked")
)

// Service описывает бизнес-логику сервиса сессий.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	rcache  cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetRefreshCache устанавливает кэш слотов refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
