package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и при ротации.
//
// Описание:
//   - AccessToken — JWT для авторизации запросов, уходит клиенту в теле ответа;
//   - RefreshToken — JWT для обновления пары, уходит клиенту в scoped-cookie
//     и одновременно записывается в слот пользователя;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
//
// Токены всегда выпускаются вместе: успешная ротация даёт и новое окно доступа.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
