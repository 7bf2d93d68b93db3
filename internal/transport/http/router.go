package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-session-service/internal/config"
	"github.com/pribylovaa/go-session-service/internal/service"
	"github.com/pribylovaa/go-session-service/internal/transport/http/handlers"
	"github.com/pribylovaa/go-session-service/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger        *slog.Logger
	Timeout       time.Duration
	Cookie        config.CookieConfig
	AllowedOrigin string
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),                // безопасно ловим паники
		middleware.RequestID(),              // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),     // кладём request-scoped логгер в контекст и логируем
		middleware.CORS(opts.AllowedOrigin), // credentials только для доверенного origin
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc, opts.Cookie)

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/refresh_token", h.RefreshToken)

	// Защищённые маршруты: guard проверяет access-токен до обработчика.
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(h.Service()))
		pr.Get("/protected", h.Protected)
	})
}
