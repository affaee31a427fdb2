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

type tokenRepo struct{ db *sql.DB }

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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	// un solo link vigente por destinatario: los anteriores activos caducan
	if _, err := tx.ExecContext(ctx, `
		UPDATE magic_tokens SET expires_at = ?
		WHERE email = ? AND used_at IS NULL AND expires_at > ?`,
		now, email, now); err != nil {
		return nil, fmt.Errorf("sqlite: expire previous tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO magic_tokens (id, email, token_hash, app_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tok.ID, tok.Email, tok.TokenHash, tok.AppID, tok.ExpiresAt, tok.CreatedAt); err != nil {
		return nil, fmt.Errorf("sqlite: insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return tok, nil
}

func (r *tokenRepo) Consume(ctx context.Context, tokenHash string) (*repository.MagicToken, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	var (
		tok    repository.MagicToken
		usedAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, email, token_hash, app_id, expires_at, used_at, created_at
		FROM magic_tokens WHERE token_hash = ?`, tokenHash).
		Scan(&tok.ID, &tok.Email, &tok.TokenHash, &tok.AppID, &tok.ExpiresAt, &usedAt, &tok.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: lookup token: %w", err)
	}
	if usedAt.Valid || !tok.ExpiresAt.After(now) {
		return nil, repository.ErrTokenExpired
	}

	// el UPDATE condicional es la barrera contra el doble consumo
	res, err := tx.ExecContext(ctx, `
		UPDATE magic_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`, now, tok.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: mark used: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, repository.ErrTokenExpired
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}

	tok.UsedAt = &now
	return &tok, nil
}

func (r *tokenRepo) DeleteExpired(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM magic_tokens WHERE used_at IS NOT NULL OR expires_at <= ?`,
		time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete expired tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
