// Package health expone liveness y readiness.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/internalhub/internal/cache"
	httpapi "github.com/dropDatabas3/internalhub/internal/http"
	"github.com/dropDatabas3/internalhub/internal/http/dto"
	"github.com/dropDatabas3/internalhub/internal/store"
)

// Controller maneja /healthz y /readyz.
type Controller struct {
	conn  store.AdapterConnection
	cache cache.Client
}

// New crea el controller de health.
func New(conn store.AdapterConnection, cacheClient cache.Client) *Controller {
	return &Controller{conn: conn, cache: cacheClient}
}

// Healthz responde mientras el proceso esté vivo. No toca dependencias.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// Readyz verifica las dependencias. Cache degradado no corta el tráfico:
// el hub funciona sin cache, sólo más lento.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok", "cache": "ok"}
	status := http.StatusOK
	overall := "ok"

	if err := c.conn.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		overall = "degraded"
		status = http.StatusServiceUnavailable
	}
	if err := c.cache.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		if overall == "ok" {
			overall = "degraded"
		}
	}

	httpapi.WriteJSON(w, status, dto.HealthResponse{Status: overall, Checks: checks})
}
