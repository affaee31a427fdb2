package pg

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/dropDatabas3/internalhub/migrations/postgres"
)

// Formato de archivo: {version}_{name}.sql (ej: 0001_init.sql)
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

type migration struct {
	version int
	name    string
	sql     string
}

// Migrate aplica las migraciones embebidas que falten. Cada versión corre
// en su propia transacción y queda registrada en schema_migrations. Corre
// en cada Connect; cmd/migrate lo expone como paso de deploy explícito.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("pg: create schema_migrations: %w", err)
	}

	migs, err := parseMigrations()
	if err != nil {
		return err
	}

	for _, m := range migs {
		var applied bool
		if err := pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version).
			Scan(&applied); err != nil {
			return fmt.Errorf("pg: check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("pg: begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("pg: apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
			m.version, m.name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("pg: record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("pg: commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

func parseMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrations.FS, migrations.Dir)
	if err != nil {
		return nil, fmt.Errorf("pg: read migrations: %w", err)
	}

	var migs []migration
	for _, e := range entries {
		m := migrationFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("pg: bad migration version %q: %w", e.Name(), err)
		}
		b, err := fs.ReadFile(migrations.FS, path.Join(migrations.Dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("pg: read migration %q: %w", e.Name(), err)
		}
		migs = append(migs, migration{version: version, name: m[2], sql: string(b)})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].version < migs[j].version })
	return migs, nil
}
