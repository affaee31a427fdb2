package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type starRepo struct{ pool *pgxpool.Pool }

func (r *starRepo) Toggle(ctx context.Context, userID, appID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM stars WHERE user_id::text = $1 AND app_id::text = $2`, userID, appID)
	if err != nil {
		return false, fmt.Errorf("pg: unstar: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO stars (user_id, app_id, created_at) VALUES ($1, $2, $3)`,
		userID, appID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("pg: star: %w", err)
	}
	return true, nil
}

func (r *starRepo) CountByApp(ctx context.Context, appID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)::int FROM stars WHERE app_id::text = $1`, appID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pg: count stars: %w", err)
	}
	return n, nil
}

func (r *starRepo) IsStarred(ctx context.Context, userID, appID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM stars WHERE user_id::text = $1 AND app_id::text = $2)`,
		userID, appID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pg: is starred: %w", err)
	}
	return exists, nil
}
