package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/internalhub/internal/observability/logger"
)

// WithRecover atrapa pánicos del handler y responde 500 sin tirar el proceso.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Any("panic", rec),
						logger.Path(r.URL.Path),
					)
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":             "internal_error",
						"error_description": "panic recover",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
