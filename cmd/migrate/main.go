// migrate aplica las migraciones de Postgres como paso explícito de deploy.
// El server también las corre al conectar; esta herramienta existe para
// pipelines que quieren migrar antes de levantar réplicas nuevas.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/internalhub/internal/config"
	"github.com/dropDatabas3/internalhub/internal/store/adapters/pg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "ruta al YAML de configuración")
	dsn := flag.String("dsn", "", "DSN de Postgres (pisa al del config)")
	flag.Parse()

	target := *dsn
	if target == "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}
		if cfg.Store.Driver != "postgres" {
			return fmt.Errorf("el driver configurado es %q; sólo postgres migra", cfg.Store.Driver)
		}
		target = cfg.Store.DSN
	}
	if target == "" {
		return fmt.Errorf("falta el DSN (flag -dsn o store.dsn en el config)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, target)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool); err != nil {
		return err
	}
	fmt.Println("schema al día")
	return nil
}
