package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

type accessLogRepo struct{ db *sql.DB }

func (r *accessLogRepo) Insert(ctx context.Context, entry repository.AccessLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_access_log (id, app_id, accessor_email, method, accessed_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.AppID, entry.AccessorEmail, entry.Method, entry.AccessedAt)
	if err != nil {
		return fmt.Errorf("sqlite: insert access log: %w", err)
	}
	return nil
}

func (r *accessLogRepo) ListByApp(ctx context.Context, appID string, limit int) ([]repository.AccessLogEntry, error) {
	query := `
		SELECT id, app_id, accessor_email, method, accessed_at
		FROM app_access_log WHERE app_id = ? ORDER BY accessed_at DESC`
	args := []any{appID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list access log: %w", err)
	}
	defer rows.Close()

	var entries []repository.AccessLogEntry
	for rows.Next() {
		var e repository.AccessLogEntry
		if err := rows.Scan(&e.ID, &e.AppID, &e.AccessorEmail, &e.Method, &e.AccessedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan access log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
