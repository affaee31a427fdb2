// seed carga datos de demostración: un usuario y tres apps con distintos
// modos de acceso, con sus árboles publicados. Para desarrollo local.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/internalhub/internal/bundle"
	"github.com/dropDatabas3/internalhub/internal/config"
	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	"github.com/dropDatabas3/internalhub/internal/storage"
	"github.com/dropDatabas3/internalhub/internal/store"
	"github.com/dropDatabas3/internalhub/internal/util/slug"

	_ "github.com/dropDatabas3/internalhub/internal/store/adapters/fs"
	_ "github.com/dropDatabas3/internalhub/internal/store/adapters/pg"
	_ "github.com/dropDatabas3/internalhub/internal/store/adapters/sqlite"
)

type demoApp struct {
	name        string
	description string
	accessType  repository.AccessType
	password    string
	emails      []string
}

var demoApps = []demoApp{
	{
		name:        "Status Board",
		description: "Tablero de estado de los servicios internos",
		accessType:  repository.AccessPublic,
	},
	{
		name:        "Runbook",
		description: "Procedimientos de guardia",
		accessType:  repository.AccessPassword,
		password:    "guardia",
	},
	{
		name:        "Roadmap",
		description: "Planes del trimestre",
		accessType:  repository.AccessEmailList,
		emails:      []string{"demo@internalhub.local"},
	},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "ruta al YAML de configuración")
	email := flag.String("email", "demo@internalhub.local", "email del usuario demo")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:       cfg.Store.Driver,
		DSN:        cfg.Store.DSN,
		SQLitePath: cfg.Store.SQLite.Path,
		FSRoot:     cfg.Store.FS.Root,
		MaxConns:   cfg.Store.Postgres.MaxConns,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	backend, err := storage.NewLocal(cfg.Uploads.Root)
	if err != nil {
		return err
	}
	mat := bundle.New(backend, bundle.Limits{})

	user, err := conn.Users().GetOrCreateByEmail(ctx, *email, "Demo")
	if err != nil {
		return err
	}
	fmt.Printf("usuario: %s (%s)\n", user.Email, user.ID)

	published := repository.AppStatusPublished
	for _, d := range demoApps {
		storagePath := fmt.Sprintf("%s-%d", slug.Make(d.name), time.Now().UnixMilli())
		files := []bundle.File{
			{Path: "index.html", Content: []byte(
				"<!doctype html><title>" + d.name + "</title><h1>" + d.name + "</h1><p>" + d.description + "</p>")},
		}
		if _, err := mat.Materialize(ctx, storagePath, files); err != nil {
			return err
		}

		app, err := conn.Apps().Create(ctx, repository.CreateAppInput{
			Name:        d.name,
			Description: d.description,
			StoragePath: storagePath,
			OwnerID:     user.ID,
		})
		if err != nil {
			return err
		}

		at := d.accessType
		input := repository.UpdateAppInput{Status: &published, AccessType: &at}
		if d.password != "" {
			input.AccessPassword = &d.password
		}
		if len(d.emails) > 0 {
			input.AccessEmails = &d.emails
		}
		if _, err := conn.Apps().Update(ctx, app.ID, input); err != nil {
			return err
		}
		fmt.Printf("app: %s (%s, %s)\n", app.Name, app.Slug, d.accessType)
	}
	return nil
}
