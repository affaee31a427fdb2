package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

type userRepo struct{ db *sql.DB }

func scanUser(row interface{ Scan(...any) error }) (*repository.User, error) {
	var (
		u         repository.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: scan user: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (r *userRepo) GetOrCreateByEmail(ctx context.Context, email, name string) (*repository.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", repository.ErrInvalidInput)
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, created_at, last_login)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			last_login = excluded.last_login,
			name = CASE WHEN users.name = '' THEN excluded.name ELSE users.name END`,
		uuid.NewString(), email, name, now, now)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upsert user: %w", err)
	}
	return r.GetByEmail(ctx, email)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, last_login FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, last_login FROM users WHERE email = ? COLLATE NOCASE`, email)
	return scanUser(row)
}
