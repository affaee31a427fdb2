// Package sqlite implementa el adapter de persistencia sobre SQLite
// (driver puro Go). Punto medio entre fs y postgres: un solo archivo,
// queries reales, sin servidor que administrar.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	store "github.com/dropDatabas3/internalhub/internal/store"
)

func init() {
	store.RegisterAdapter(&sqliteAdapter{})
}

type sqliteAdapter struct{}

func (a *sqliteAdapter) Name() string { return "sqlite" }

func (a *sqliteAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = filepath.Join("data", "internalhub.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// SQLite rinde mejor serializando el acceso desde un solo conn
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := bootstrap(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteConnection{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS apps (
			id              TEXT PRIMARY KEY,
			slug            TEXT NOT NULL UNIQUE,
			name            TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'draft',
			storage_path    TEXT NOT NULL,
			owner_id        TEXT NOT NULL,
			access_type     TEXT NOT NULL DEFAULT 'private',
			access_password TEXT NOT NULL DEFAULT '',
			access_emails   TEXT NOT NULL DEFAULT '[]',
			access_domain   TEXT NOT NULL DEFAULT '',
			tags            TEXT NOT NULL DEFAULT '[]',
			created_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL,
			published_at    TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_apps_owner ON apps(owner_id);

		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE COLLATE NOCASE,
			name       TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			last_login TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS magic_tokens (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL COLLATE NOCASE,
			token_hash TEXT NOT NULL UNIQUE,
			app_id     TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMP NOT NULL,
			used_at    TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_magic_tokens_email ON magic_tokens(email);

		CREATE TABLE IF NOT EXISTS stars (
			user_id    TEXT NOT NULL,
			app_id     TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, app_id)
		);

		CREATE TABLE IF NOT EXISTS app_access_log (
			id             TEXT PRIMARY KEY,
			app_id         TEXT NOT NULL,
			accessor_email TEXT NOT NULL DEFAULT '',
			method         TEXT NOT NULL,
			accessed_at    TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_access_log_app ON app_access_log(app_id, accessed_at);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: bootstrap schema: %w", err)
	}
	return nil
}

type sqliteConnection struct {
	db *sql.DB
}

func (c *sqliteConnection) Name() string                   { return "sqlite" }
func (c *sqliteConnection) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }
func (c *sqliteConnection) Close() error                   { return c.db.Close() }

func (c *sqliteConnection) Apps() repository.AppRepository               { return &appRepo{db: c.db} }
func (c *sqliteConnection) Users() repository.UserRepository             { return &userRepo{db: c.db} }
func (c *sqliteConnection) MagicTokens() repository.MagicTokenRepository { return &tokenRepo{db: c.db} }
func (c *sqliteConnection) Stars() repository.StarRepository             { return &starRepo{db: c.db} }
func (c *sqliteConnection) AccessLog() repository.AccessLogRepository    { return &accessLogRepo{db: c.db} }
