package repository

import (
	"context"
	"time"
)

// AccessLogEntry registra un acceso exitoso a una app protegida.
type AccessLogEntry struct {
	ID            string
	AppID         string
	AccessorEmail string // vacío para accesos por password
	Method        string // "password" | "email" | "owner" | "public"
	AccessedAt    time.Time
}

// AccessLogRepository persiste el log de accesos. Best-effort: un fallo
// al loguear nunca bloquea el acceso en sí.
type AccessLogRepository interface {
	Insert(ctx context.Context, entry AccessLogEntry) error
	ListByApp(ctx context.Context, appID string, limit int) ([]AccessLogEntry, error)
}
