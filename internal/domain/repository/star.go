package repository

import "context"

// StarRepository maneja los favoritos usuario↔app.
type StarRepository interface {
	// Toggle invierte el estado de favorito. Retorna true si quedó starred.
	Toggle(ctx context.Context, userID, appID string) (bool, error)

	// CountByApp devuelve la cantidad de stars de una app.
	CountByApp(ctx context.Context, appID string) (int, error)

	// IsStarred reporta si el usuario tiene la app como favorita.
	IsStarred(ctx context.Context, userID, appID string) (bool, error)
}
