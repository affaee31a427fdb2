// Package fs implementa el adapter de persistencia sobre archivos YAML.
// Pensado para desarrollo y despliegues unipersonales: cero dependencias
// externas, todo legible con un editor. Cada colección vive en un archivo
// y las escrituras pasan por atomicwrite.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/internalhub/internal/domain/repository"
	store "github.com/dropDatabas3/internalhub/internal/store"
	"github.com/dropDatabas3/internalhub/internal/util/atomicwrite"
)

func init() {
	store.RegisterAdapter(&fsAdapter{})
}

type fsAdapter struct{}

func (a *fsAdapter) Name() string { return "fs" }

func (a *fsAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	root := cfg.FSRoot
	if root == "" {
		root = "data"
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(root, 0755); mkErr != nil {
				return nil, fmt.Errorf("fs: create root %s: %w", root, mkErr)
			}
		} else {
			return nil, fmt.Errorf("fs: root path error: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("fs: root path is not a directory: %s", root)
	}

	return &fsConnection{root: root}, nil
}

// fsConnection representa una conexión activa al FileSystem.
// Un único RWMutex serializa todas las colecciones: el volumen esperado
// no justifica locking más fino.
type fsConnection struct {
	root string
	mu   sync.RWMutex
}

func (c *fsConnection) Name() string { return "fs" }

func (c *fsConnection) Ping(ctx context.Context) error {
	_, err := os.Stat(c.root)
	return err
}

func (c *fsConnection) Close() error { return nil }

func (c *fsConnection) Apps() repository.AppRepository               { return &appRepo{conn: c} }
func (c *fsConnection) Users() repository.UserRepository             { return &userRepo{conn: c} }
func (c *fsConnection) MagicTokens() repository.MagicTokenRepository { return &tokenRepo{conn: c} }
func (c *fsConnection) Stars() repository.StarRepository             { return &starRepo{conn: c} }
func (c *fsConnection) AccessLog() repository.AccessLogRepository    { return &accessLogRepo{conn: c} }

// ─── Archivos de colección ───

func (c *fsConnection) appsFile() string      { return filepath.Join(c.root, "apps.yaml") }
func (c *fsConnection) usersFile() string     { return filepath.Join(c.root, "users.yaml") }
func (c *fsConnection) tokensFile() string    { return filepath.Join(c.root, "magic_tokens.yaml") }
func (c *fsConnection) starsFile() string     { return filepath.Join(c.root, "stars.yaml") }
func (c *fsConnection) accessLogFile() string { return filepath.Join(c.root, "access_log.yaml") }

// loadYAML deserializa una colección. Archivo ausente = colección vacía.
func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("fs: read %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("fs: parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// saveYAML serializa y escribe de forma atómica.
func saveYAML(path string, in any) error {
	b, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("fs: marshal %s: %w", filepath.Base(path), err)
	}
	if err := atomicwrite.AtomicWriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("fs: write %s: %w", filepath.Base(path), err)
	}
	return nil
}
