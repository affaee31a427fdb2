package fs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

type tokenRecord struct {
	ID        string     `yaml:"id"`
	Email     string     `yaml:"email"`
	TokenHash string     `yaml:"token_hash"`
	AppID     string     `yaml:"app_id,omitempty"`
	ExpiresAt time.Time  `yaml:"expires_at"`
	UsedAt    *time.Time `yaml:"used_at,omitempty"`
	CreatedAt time.Time  `yaml:"created_at"`
}

func (r tokenRecord) toDomain() *repository.MagicToken {
	return &repository.MagicToken{
		ID:        r.ID,
		Email:     r.Email,
		TokenHash: r.TokenHash,
		AppID:     r.AppID,
		ExpiresAt: r.ExpiresAt,
		UsedAt:    r.UsedAt,
		CreatedAt: r.CreatedAt,
	}
}

type tokenRepo struct{ conn *fsConnection }

func (r *tokenRepo) Create(ctx context.Context, input repository.CreateMagicTokenInput) (*repository.MagicToken, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.TokenHash == "" {
		return nil, fmt.Errorf("%w: email and token hash are required", repository.ErrInvalidInput)
	}

	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var toks []tokenRecord
	if err := loadYAML(r.conn.tokensFile(), &toks); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	// un solo link vigente por destinatario: los anteriores activos caducan
	for i := range toks {
		if strings.EqualFold(toks[i].Email, email) && toks[i].UsedAt == nil && toks[i].ExpiresAt.After(now) {
			toks[i].ExpiresAt = now
		}
	}

	rec := tokenRecord{
		ID:        uuid.NewString(),
		Email:     email,
		TokenHash: input.TokenHash,
		AppID:     input.AppID,
		ExpiresAt: now.Add(input.TTL),
		CreatedAt: now,
	}
	toks = append(toks, rec)
	if err := saveYAML(r.conn.tokensFile(), toks); err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *tokenRepo) Consume(ctx context.Context, tokenHash string) (*repository.MagicToken, error) {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var toks []tokenRecord
	if err := loadYAML(r.conn.tokensFile(), &toks); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range toks {
		if toks[i].TokenHash != tokenHash {
			continue
		}
		if toks[i].UsedAt != nil || !toks[i].ExpiresAt.After(now) {
			return nil, repository.ErrTokenExpired
		}
		toks[i].UsedAt = &now
		if err := saveYAML(r.conn.tokensFile(), toks); err != nil {
			return nil, err
		}
		return toks[i].toDomain(), nil
	}
	return nil, repository.ErrNotFound
}

func (r *tokenRepo) DeleteExpired(ctx context.Context) (int, error) {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var toks []tokenRecord
	if err := loadYAML(r.conn.tokensFile(), &toks); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	kept := toks[:0]
	removed := 0
	for _, t := range toks {
		if t.UsedAt != nil || !t.ExpiresAt.After(now) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := saveYAML(r.conn.tokensFile(), kept); err != nil {
		return 0, err
	}
	return removed, nil
}
