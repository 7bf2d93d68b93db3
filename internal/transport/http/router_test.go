package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-session-service/internal/config"
	"github.com/pribylovaa/go-session-service/internal/models"
	"github.com/pribylovaa/go-session-service/internal/service"
	"github.com/pribylovaa/go-session-service/internal/storage"
)

// Файл сквозных тестов HTTP-слоя: полный жизненный цикл сессии
// (регистрация -> логин -> защищённый маршрут -> ротация -> повторное
// использование -> logout) поверх httptest и хранилища в памяти.

// memStorage — потокобезопасное хранилище в памяти для тестов транспорта.
type memStorage struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
}

func newMemStorage() *memStorage {
	return &memStorage{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (m *memStorage) SaveUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[user.Email]; ok {
		return storage.ErrAlreadyExists
	}

	cp := *user
	m.byID[user.ID] = &cp
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *memStorage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *m.byID[id]
	return &cp, nil
}

func (m *memStorage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *u
	return &cp, nil
}

func (m *memStorage) UpdateRefreshToken(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return storage.ErrNotFound
	}

	u.RefreshToken = token
	u.RefreshExpiresAt = expiresAt
	return nil
}

func (m *memStorage) ClearExpiredRefreshTokens(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.byID {
		if u.RefreshToken != "" && !u.RefreshExpiresAt.After(now) {
			u.RefreshToken = ""
			u.RefreshExpiresAt = time.Time{}
		}
	}
	return nil
}

func (m *memStorage) Close() {}

const allowedOrigin = "http://localhost:4000"

func newTestServer(t *testing.T) (*httptest.Server, *memStorage) {
	t.Helper()

	st := newMemStorage()
	svc := service.New(st, config.AuthConfig{
		AccessSecret:    "e2e-access-secret",
		RefreshSecret:   "e2e-refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "session-service",
	})

	router := NewRouter(svc, Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout: 5 * time.Second,
		Cookie: config.CookieConfig{
			Name: "refreshtoken",
			Path: "/refresh_token",
		},
		AllowedOrigin: allowedOrigin,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "refreshtoken" {
			return c
		}
	}
	return nil
}

// renew дергает эндпойнт ротации с переданной cookie (или без неё).
func renew(t *testing.T, srv *httptest.Server, cookie *http.Cookie) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/refresh_token", nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		AccessToken string `json:"accesstoken"`
	}
	decodeBody(t, resp, &out)
	return resp, out.AccessToken
}

func callProtected(t *testing.T, srv *httptest.Server, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/protected", nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	creds := map[string]string{"email": "alice@x.com", "password": "pw123"}

	// Регистрация.
	resp := postJSON(t, srv.URL+"/register", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reg struct {
		Message string `json:"message"`
		ID      string `json:"id"`
	}
	decodeBody(t, resp, &reg)
	aliceID, err := uuid.Parse(reg.ID)
	require.NoError(t, err)

	// Логин: access в теле, refresh в HttpOnly cookie с путём ротации.
	resp = postJSON(t, srv.URL+"/login", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c1 := refreshCookie(t, resp)
	require.NotNil(t, c1)
	require.True(t, c1.HttpOnly)
	require.Equal(t, "/refresh_token", c1.Path)
	require.NotEmpty(t, c1.Value)

	var login struct {
		AccessToken string `json:"accesstoken"`
	}
	decodeBody(t, resp, &login)
	require.NotEmpty(t, login.AccessToken)

	// Защищённый маршрут с A1: пропускает и возвращает identity.
	resp = callProtected(t, srv, login.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var prot struct {
		Data   string `json:"data"`
		UserID string `json:"user_id"`
	}
	decodeBody(t, resp, &prot)
	require.Equal(t, aliceID.String(), prot.UserID)

	// Ротация с C1: новый access, новая cookie C2.
	rotResp, a2 := renew(t, srv, c1)
	require.NotEmpty(t, a2)
	c2 := refreshCookie(t, rotResp)
	require.NotNil(t, c2)
	require.NotEqual(t, c1.Value, c2.Value)

	// Повторное предъявление C1 — отказ в единообразной форме.
	_, replay := renew(t, srv, c1)
	require.Empty(t, replay)

	// C2 валидна: слот держит именно её.
	_, a3 := renew(t, srv, c2)
	require.NotEmpty(t, a3)

	// Новый access после ротации тоже проходит guard.
	resp = callProtected(t, srv, a3)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestRegister_Conflict(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	creds := map[string]string{"email": "bob@x.com", "password": "pw123"}

	resp := postJSON(t, srv.URL+"/register", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/register", creds)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var out struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	decodeBody(t, resp, &out)
	require.Equal(t, "already_exists", out.Error.Code)
	require.NotEmpty(t, out.Error.RequestID)
}

func TestRegister_BadJSON(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/register", "application/json",
		bytes.NewReader([]byte(`{"email": "a@b.c", "unknown_field": 1}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin_Failures(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/register", map[string]string{"email": "carol@x.com", "password": "pw123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Неверный пароль.
	resp = postJSON(t, srv.URL+"/login", map[string]string{"email": "carol@x.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Незарегистрированный email.
	resp = postJSON(t, srv.URL+"/login", map[string]string{"email": "ghost@x.com", "password": "pw123"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Пустой email.
	resp = postJSON(t, srv.URL+"/login", map[string]string{"email": "", "password": "pw123"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProtected_Rejections(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	// Без заголовка.
	resp := callProtected(t, srv, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Мусор вместо токена.
	resp = callProtected(t, srv, "garbage")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Не Bearer-схема.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/protected", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Basic abc")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRenew_NoCookie_EmptyResult(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	// Нет cookie — не ошибка, а "не залогинен": 200 с пустым accesstoken.
	_, token := renew(t, srv, nil)
	require.Empty(t, token)
}

func TestRenew_ForgedCookie_EmptyResult(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	_, token := renew(t, srv, &http.Cookie{Name: "refreshtoken", Value: "forged.token.value"})
	require.Empty(t, token)
}

func TestLogout_ClearsCookie(t *testing.T) {
	t.Parallel()

	srv, st := newTestServer(t)

	creds := map[string]string{"email": "dave@x.com", "password": "pw123"}
	resp := postJSON(t, srv.URL+"/register", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/login", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c1 := refreshCookie(t, resp)
	require.NotNil(t, c1)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cleared := refreshCookie(t, resp)
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.Equal(t, "/refresh_token", cleared.Path)
	require.Less(t, cleared.MaxAge, 0)

	// Слот в хранилище logout не трогает: токен, добытый до logout,
	// остаётся валиден до ротации или истечения срока.
	user, err := st.UserByEmail(context.Background(), "dave@x.com")
	require.NoError(t, err)
	require.Equal(t, c1.Value, user.RefreshToken)

	_, token := renew(t, srv, c1)
	require.NotEmpty(t, token)
}

func TestCORS_TrustedOriginOnly(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	// Preflight от доверенного origin.
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", allowedOrigin)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, allowedOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	resp.Body.Close()

	// Чужой origin не получает CORS-заголовков.
	req, err = http.NewRequest(http.MethodPost, srv.URL+"/login", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	resp.Body.Close()
}

func TestRequestID_Propagated(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rid := fmt.Sprintf("test-%d", time.Now().UnixNano())
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/logout", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", rid)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, rid, resp.Header.Get("X-Request-Id"))
}
