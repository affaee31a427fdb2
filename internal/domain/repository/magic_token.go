package repository

import (
	"context"
	"time"
)

// MagicToken representa un token temporal de login por email.
// Single-use, expira a los 15 minutos de emitido. Se persiste hasheado
// (sha256); el valor plano sólo viaja dentro del link enviado por email.
type MagicToken struct {
	ID        string
	Email     string
	TokenHash string
	AppID     string // opcional: el token también desbloquea esta app
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// CreateMagicTokenInput contiene los datos para emitir un magic token.
type CreateMagicTokenInput struct {
	Email     string
	TokenHash string
	AppID     string
	TTL       time.Duration
}

// MagicTokenRepository define operaciones sobre magic tokens.
type MagicTokenRepository interface {
	// Create emite un token nuevo. Invalida cualquier token activo previo
	// para el mismo email (un solo link vigente por destinatario).
	Create(ctx context.Context, input CreateMagicTokenInput) (*MagicToken, error)

	// Consume busca un token no usado y no expirado por su hash y lo marca
	// como usado, atómicamente respecto de otros Consume del mismo hash.
	// Retorna ErrNotFound si no existe, ErrTokenExpired si expiró o ya fue usado.
	Consume(ctx context.Context, tokenHash string) (*MagicToken, error)

	// DeleteExpired elimina tokens vencidos (cleanup job).
	// Retorna el número de tokens eliminados.
	DeleteExpired(ctx context.Context) (int, error)
}
