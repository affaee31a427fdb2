package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

type accessLogRepo struct{ pool *pgxpool.Pool }

func (r *accessLogRepo) Insert(ctx context.Context, entry repository.AccessLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO app_access_log (id, app_id, accessor_email, method, accessed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.AppID, entry.AccessorEmail, entry.Method, entry.AccessedAt)
	if err != nil {
		return fmt.Errorf("pg: insert access log: %w", err)
	}
	return nil
}

func (r *accessLogRepo) ListByApp(ctx context.Context, appID string, limit int) ([]repository.AccessLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, app_id, accessor_email, method, accessed_at
		FROM app_access_log WHERE app_id::text = $1
		ORDER BY accessed_at DESC LIMIT $2`, appID, limit)
	if err != nil {
		return nil, fmt.Errorf("pg: list access log: %w", err)
	}
	defer rows.Close()

	var entries []repository.AccessLogEntry
	for rows.Next() {
		var e repository.AccessLogEntry
		if err := rows.Scan(&e.ID, &e.AppID, &e.AccessorEmail, &e.Method, &e.AccessedAt); err != nil {
			return nil, fmt.Errorf("pg: scan access log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
