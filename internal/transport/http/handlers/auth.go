package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/go-session-service/internal/errors"
	"github.com/pribylovaa/go-session-service/internal/pkg/log"
	"github.com/pribylovaa/go-session-service/internal/service"
	"github.com/pribylovaa/go-session-service/internal/transport/http/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// accessTokenResponse — ответ логина и ротации.
// На пути ротации пустой AccessToken — единственный наблюдаемый сигнал
// отказа, независимо от причины.
type accessTokenResponse struct {
	AccessToken string `json:"accesstoken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type protectedResponse struct {
	Data   string `json:"data"`
	UserID string `json:"user_id"`
}

// Register регистрирует пользователя. Токены не выпускаются: сессия
// начинается только с логина.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	id, err := h.svc.RegisterUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "user created",
		ID:      id.String(),
	})
}

// Login аутентифицирует пользователя, ставит refresh-cookie и возвращает
// access-токен в теле ответа.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	pair, _, err := h.svc.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken})
}

// Logout очищает refresh-cookie. Слот в хранилище не трогается: токен,
// украденный до logout, остаётся валиден до ротации или истечения срока.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// Protected — защищённая операция. ID пользователя кладёт в контекст
// guard (middleware.RequireAuth).
func (h *Handlers) Protected(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		// Маршрут смонтирован без guard-а: отвечаем как на отсутствие токена.
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	writeJSON(w, http.StatusOK, protectedResponse{
		Data:   "this is protected data",
		UserID: userID.String(),
	})
}

// RefreshToken — эндпойнт ротации.
//
// Контракт единообразного отказа: ЛЮБАЯ причина (нет cookie, битый или
// просроченный токен, вытесненный ротацией токен, исчезнувший пользователь)
// даёт один и тот же ответ 200 {"accesstoken": ""}. Конкретная причина
// различима только во внутренних логах сервиса.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	denied := func() {
		writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: ""})
	}

	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil || cookie.Value == "" {
		// Нет cookie — "не залогинен", не ошибка.
		denied()
		return
	}

	pair, _, err := h.svc.RefreshSession(r.Context(), cookie.Value)
	if err != nil {
		// Инфраструктурный сбой и отказ по токену снаружи неразличимы.
		if isInfraErr(err) {
			log.From(r.Context()).Error("refresh_internal_error",
				slog.String("err", err.Error()),
			)
		}
		denied()
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken})
}

// isInfraErr отделяет сбои хранилища/подписи от штатных отказов по токену.
func isInfraErr(err error) bool {
	return !errors.Is(err, service.ErrInvalidToken) &&
		!errors.Is(err, service.ErrTokenExpired) &&
		!errors.Is(err, service.ErrTokenRevoked)
}
