package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	"github.com/dropDatabas3/internalhub/internal/observability/logger"
	"github.com/dropDatabas3/internalhub/internal/signing"
)

// SessionConfig dice cómo leer y validar la cookie de sesión.
type SessionConfig struct {
	CookieName string
	Signer     *signing.Signer
	Users      repository.UserRepository
}

// WithSession resuelve la sesión si la cookie está presente y es válida,
// y deja el usuario en el contexto. Nunca corta el request: los endpoints
// que exigen login usan RequireUser encima.
func WithSession(cfg SessionConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cfg.CookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := cfg.Signer.Parse(c.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			sub, _ := claims["sub"].(string)
			if sub == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := cfg.Users.GetByID(r.Context(), sub)
			if err != nil {
				if !repository.IsNotFound(err) {
					logger.From(r.Context()).Warn("session user lookup failed", logger.Err(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setUser(r.Context(), user)))
		})
	}
}

// RequireUser corta con 401 si no hay usuario autenticado en el contexto.
func RequireUser() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFrom(r.Context()) == nil {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":             "unauthorized",
					"error_description": "login requerido",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
