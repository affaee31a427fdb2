package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

type userRepo struct{ pool *pgxpool.Pool }

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: scan user: %w", err)
	}
	return &u, nil
}

func (r *userRepo) GetOrCreateByEmail(ctx context.Context, email, name string) (*repository.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", repository.ErrInvalidInput)
	}

	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, created_at, last_login)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (lower(email)) DO UPDATE SET
			last_login = EXCLUDED.last_login,
			name = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END
		RETURNING id, email, name, created_at, last_login`,
		uuid.NewString(), email, name, now)
	return scanUser(row)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at, last_login FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at, last_login FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}
