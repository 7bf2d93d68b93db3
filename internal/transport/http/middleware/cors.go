package middleware

import (
	"net/http"
)

// CORS разрешает кросс-доменные запросы с credentials ровно для одного
// доверенного origin. Wildcard здесь невозможен: браузеры запрещают
// сочетание Access-Control-Allow-Origin: * с Allow-Credentials: true,
// а refresh-cookie без credentials не уедет вовсе.
func CORS(allowedOrigin string) Middleware {
	return func(next http.Handler) http.Handler {
		if allowedOrigin == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Vary — на каждом ответе: промежуточный кэш не должен отдать
			// ответ с credentials-заголовками другому origin.
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")

			if origin == allowedOrigin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")

				if r.Method == http.MethodOptions {
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
