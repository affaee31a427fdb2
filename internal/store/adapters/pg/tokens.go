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

type tokenRepo struct{ pool *pgxpool.Pool }

func (r *tokenRepo) Create(ctx context.Context, input repository.CreateMagicTokenInput) (*repository.MagicToken, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.TokenHash == "" {
		return nil, fmt.Errorf("%w: email and token hash are required", repository.ErrInvalidInput)
	}

	now := time.Now().UTC()
	tok := &repository.MagicToken{
		ID:        uuid.NewString(),
		Email:     email,
		TokenHash: input.TokenHash,
		AppID:     input.AppID,
		ExpiresAt: now.Add(input.TTL),
		CreatedAt: now,
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// un solo link vigente por destinatario: los anteriores activos caducan
	if _, err := tx.Exec(ctx, `
		UPDATE magic_tokens SET expires_at = $1
		WHERE lower(email) = $2 AND used_at IS NULL AND expires_at > $1`,
		now, email); err != nil {
		return nil, fmt.Errorf("pg: expire previous tokens: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO magic_tokens (id, email, token_hash, app_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tok.ID, tok.Email, tok.TokenHash, tok.AppID, tok.ExpiresAt, tok.CreatedAt); err != nil {
		return nil, fmt.Errorf("pg: insert token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("pg: commit: %w", err)
	}
	return tok, nil
}

func (r *tokenRepo) Consume(ctx context.Context, tokenHash string) (*repository.MagicToken, error) {
	now := time.Now().UTC()

	// el UPDATE condicional marca y devuelve en un solo paso: dos Consume
	// concurrentes del mismo hash nunca ganan los dos
	var tok repository.MagicToken
	err := r.pool.QueryRow(ctx, `
		UPDATE magic_tokens SET used_at = $1
		WHERE token_hash = $2 AND used_at IS NULL AND expires_at > $1
		RETURNING id, email, token_hash, app_id, expires_at, used_at, created_at`,
		now, tokenHash).
		Scan(&tok.ID, &tok.Email, &tok.TokenHash, &tok.AppID, &tok.ExpiresAt, &tok.UsedAt, &tok.CreatedAt)
	if err == nil {
		return &tok, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pg: consume token: %w", err)
	}

	// distinguir inexistente de vencido/usado
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM magic_tokens WHERE token_hash = $1)`, tokenHash).
		Scan(&exists); err != nil {
		return nil, fmt.Errorf("pg: lookup token: %w", err)
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrTokenExpired
}

func (r *tokenRepo) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM magic_tokens WHERE used_at IS NOT NULL OR expires_at <= $1`,
		time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("pg: delete expired tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
