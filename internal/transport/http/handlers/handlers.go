package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pribylovaa/go-session-service/internal/config"
	"github.com/pribylovaa/go-session-service/internal/service"
)

// Handlers агрегирует зависимости HTTP-слоя.
type Handlers struct {
	svc    *service.Service
	cookie config.CookieConfig
}

// New создаёт Handlers.
func New(svc *service.Service, cookie config.CookieConfig) *Handlers {
	return &Handlers{svc: svc, cookie: cookie}
}

// Service возвращает сервис (нужен роутеру для guard-а).
func (h *Handlers) Service() *service.Service { return h.svc }

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// setRefreshCookie ставит refresh-токен в HttpOnly cookie, ограниченную
// путём эндпойнта ротации: с обычными запросами cookie не уходит.
func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
	})
}

// clearRefreshCookie удаляет refresh-cookie. Name и Path обязаны совпадать
// с выставленными при установке, иначе браузер cookie не удалит.
func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
	})
}
