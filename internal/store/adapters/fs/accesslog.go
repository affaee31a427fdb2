package fs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
)

type accessLogRecord struct {
	ID            string    `yaml:"id"`
	AppID         string    `yaml:"app_id"`
	AccessorEmail string    `yaml:"accessor_email,omitempty"`
	Method        string    `yaml:"method"`
	AccessedAt    time.Time `yaml:"accessed_at"`
}

type accessLogRepo struct{ conn *fsConnection }

func (r *accessLogRepo) Insert(ctx context.Context, entry repository.AccessLogEntry) error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var entries []accessLogRecord
	if err := loadYAML(r.conn.accessLogFile(), &entries); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = time.Now().UTC()
	}
	entries = append(entries, accessLogRecord{
		ID:            entry.ID,
		AppID:         entry.AppID,
		AccessorEmail: entry.AccessorEmail,
		Method:        entry.Method,
		AccessedAt:    entry.AccessedAt,
	})
	return saveYAML(r.conn.accessLogFile(), entries)
}

func (r *accessLogRepo) ListByApp(ctx context.Context, appID string, limit int) ([]repository.AccessLogEntry, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	var entries []accessLogRecord
	if err := loadYAML(r.conn.accessLogFile(), &entries); err != nil {
		return nil, err
	}

	// más recientes primero
	var out []repository.AccessLogEntry
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].AppID != appID {
			continue
		}
		out = append(out, repository.AccessLogEntry{
			ID:            entries[i].ID,
			AppID:         entries[i].AppID,
			AccessorEmail: entries[i].AccessorEmail,
			Method:        entries[i].Method,
			AccessedAt:    entries[i].AccessedAt,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// deleteAccessLogByApp limpia el log de una app eliminada.
// Se llama con el lock de la conexión ya tomado.
func deleteAccessLogByApp(conn *fsConnection, appID string) error {
	var entries []accessLogRecord
	if err := loadYAML(conn.accessLogFile(), &entries); err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.AppID == appID {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == len(entries) {
		return nil
	}
	return saveYAML(conn.accessLogFile(), kept)
}
