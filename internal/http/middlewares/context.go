package middlewares

import (
	"context"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyUser
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// GetRequestID devuelve el request ID inyectado por WithRequestID, o "".
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func setUser(ctx context.Context, u *repository.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFrom devuelve el usuario autenticado del contexto, o nil si la
// sesión no existe o no se pudo resolver.
func UserFrom(ctx context.Context) *repository.User {
	if u, ok := ctx.Value(ctxKeyUser).(*repository.User); ok {
		return u
	}
	return nil
}
