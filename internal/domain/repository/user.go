package repository

import (
	"context"
	"time"
)

// User es un usuario del hub. El login es passwordless (magic link),
// así que no hay credenciales persistidas.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	LastLogin *time.Time
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetOrCreateByEmail busca el usuario por email (case-insensitive);
	// si no existe lo crea. En ambos casos actualiza LastLogin.
	GetOrCreateByEmail(ctx context.Context, email, name string) (*User, error)

	// GetByID busca por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail busca por email. Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)
}
