package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type starRepo struct{ db *sql.DB }

func (r *starRepo) Toggle(ctx context.Context, userID, appID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM stars WHERE user_id = ? AND app_id = ?`, userID, appID)
	if err != nil {
		return false, fmt.Errorf("sqlite: unstar: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO stars (user_id, app_id, created_at) VALUES (?, ?, ?)`,
		userID, appID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("sqlite: star: %w", err)
	}
	return true, nil
}

func (r *starRepo) CountByApp(ctx context.Context, appID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stars WHERE app_id = ?`, appID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count stars: %w", err)
	}
	return n, nil
}

func (r *starRepo) IsStarred(ctx context.Context, userID, appID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM stars WHERE user_id = ? AND app_id = ?)`,
		userID, appID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("sqlite: is starred: %w", err)
	}
	return exists, nil
}
