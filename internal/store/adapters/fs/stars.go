package fs

import (
	"context"
	"time"
)

type starRecord struct {
	UserID    string    `yaml:"user_id"`
	AppID     string    `yaml:"app_id"`
	CreatedAt time.Time `yaml:"created_at"`
}

type starRepo struct{ conn *fsConnection }

func (r *starRepo) Toggle(ctx context.Context, userID, appID string) (bool, error) {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var stars []starRecord
	if err := loadYAML(r.conn.starsFile(), &stars); err != nil {
		return false, err
	}

	kept := stars[:0]
	removed := false
	for _, s := range stars {
		if s.UserID == userID && s.AppID == appID {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	if removed {
		return false, saveYAML(r.conn.starsFile(), kept)
	}

	stars = append(stars, starRecord{UserID: userID, AppID: appID, CreatedAt: time.Now().UTC()})
	return true, saveYAML(r.conn.starsFile(), stars)
}

func (r *starRepo) CountByApp(ctx context.Context, appID string) (int, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	var stars []starRecord
	if err := loadYAML(r.conn.starsFile(), &stars); err != nil {
		return 0, err
	}
	n := 0
	for _, s := range stars {
		if s.AppID == appID {
			n++
		}
	}
	return n, nil
}

func (r *starRepo) IsStarred(ctx context.Context, userID, appID string) (bool, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	var stars []starRecord
	if err := loadYAML(r.conn.starsFile(), &stars); err != nil {
		return false, err
	}
	for _, s := range stars {
		if s.UserID == userID && s.AppID == appID {
			return true, nil
		}
	}
	return false, nil
}

// deleteStarsByApp limpia los favoritos de una app eliminada.
// Se llama con el lock de la conexión ya tomado.
func deleteStarsByApp(conn *fsConnection, appID string) error {
	var stars []starRecord
	if err := loadYAML(conn.starsFile(), &stars); err != nil {
		return err
	}
	kept := stars[:0]
	for _, s := range stars {
		if s.AppID == appID {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == len(stars) {
		return nil
	}
	return saveYAML(conn.starsFile(), kept)
}
