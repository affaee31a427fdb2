package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dropDatabas3/internalhub/internal/util/atomicwrite"
)

// Local implementa Backend sobre el filesystem local.
type Local struct {
	root string // absoluto, limpio
}

// NewLocal crea un backend local con root como raíz de uploads.
// Crea el directorio si no existe.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Local{root: abs}, nil
}

// Root devuelve el directorio raíz absoluto.
func (l *Local) Root() string { return l.root }

func (l *Local) Stage() (string, error) {
	dir, err := os.MkdirTemp(l.root, ".stage-*")
	if err != nil {
		return "", fmt.Errorf("storage: create stage: %w", err)
	}
	return dir, nil
}

func (l *Local) Publish(stage, prefix string) error {
	dest, err := l.prefixDir(prefix)
	if err != nil {
		return err
	}
	return atomicwrite.ReplaceDir(stage, dest)
}

func (l *Local) Discard(stage string) {
	// Sólo borramos stages que viven bajo nuestro root.
	if strings.HasPrefix(filepath.Clean(stage), l.root+string(filepath.Separator)) {
		_ = os.RemoveAll(stage)
	}
}

func (l *Local) List(prefix string) ([]string, error) {
	dir, err := l.prefixDir(prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
	}
	sort.Strings(out)
	return out, nil
}

func (l *Local) Stat(prefix, rel string) (Info, error) {
	path, err := l.resolve(prefix, rel)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, ErrNotFound
		}
		return Info{}, err
	}
	return Info{Size: fi.Size(), ModTime: fi.ModTime(), IsDir: fi.IsDir()}, nil
}

func (l *Local) Open(prefix, rel string) (io.ReadCloser, Info, error) {
	path, err := l.resolve(prefix, rel)
	if err != nil {
		return nil, Info{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, err
	}
	if fi.IsDir() {
		return nil, Info{IsDir: true}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, err
	}
	return f, Info{Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (l *Local) Remove(prefix string) error {
	dir, err := l.prefixDir(prefix)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

// prefixDir valida el prefix de la app y devuelve su directorio absoluto.
func (l *Local) prefixDir(prefix string) (string, error) {
	p := strings.TrimSpace(prefix)
	if p == "" || filepath.IsAbs(p) || containsDotDot(p) {
		return "", ErrBadPrefix
	}
	dir := filepath.Join(l.root, filepath.FromSlash(p))
	// Canonicalizar y confinar: el prefix nunca puede salir del root.
	if dir != l.root && !strings.HasPrefix(dir, l.root+string(filepath.Separator)) {
		return "", ErrBadPrefix
	}
	return dir, nil
}

// resolve canonicaliza (prefix, rel) y verifica que el resultado quede
// dentro del subtree del prefix. Cualquier escape es ErrTraversal.
func (l *Local) resolve(prefix, rel string) (string, error) {
	dir, err := l.prefixDir(prefix)
	if err != nil {
		return "", err
	}
	if containsDotDot(rel) {
		return "", ErrTraversal
	}
	path := filepath.Clean(filepath.Join(dir, filepath.FromSlash(rel)))
	if path != dir && !strings.HasPrefix(path, dir+string(filepath.Separator)) {
		return "", ErrTraversal
	}
	return path, nil
}

// containsDotDot detecta segmentos ".." en un path slash o nativo.
func containsDotDot(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}
