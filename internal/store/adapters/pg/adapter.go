// Package pg implementa el adapter de persistencia sobre PostgreSQL con pgx.
// Es el backend recomendado cuando el hub corre con más de una réplica.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	store "github.com/dropDatabas3/internalhub/internal/store"
)

func init() {
	store.RegisterAdapter(&pgAdapter{})
}

type pgAdapter struct{}

func (a *pgAdapter) Name() string { return "postgres" }

func (a *pgAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 5
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &pgConnection{pool: pool}, nil
}

type pgConnection struct {
	pool *pgxpool.Pool
}

func (c *pgConnection) Name() string                   { return "postgres" }
func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }
func (c *pgConnection) Close() error                   { c.pool.Close(); return nil }

// Pool expone el pool interno para usos avanzados (metrics, health).
func (c *pgConnection) Pool() *pgxpool.Pool { return c.pool }

func (c *pgConnection) Apps() repository.AppRepository               { return &appRepo{pool: c.pool} }
func (c *pgConnection) Users() repository.UserRepository             { return &userRepo{pool: c.pool} }
func (c *pgConnection) MagicTokens() repository.MagicTokenRepository { return &tokenRepo{pool: c.pool} }
func (c *pgConnection) Stars() repository.StarRepository             { return &starRepo{pool: c.pool} }
func (c *pgConnection) AccessLog() repository.AccessLogRepository    { return &accessLogRepo{pool: c.pool} }
