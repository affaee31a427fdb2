// Package atomicwrite provee helpers para escritura atómica en el filesystem.
// Es Windows-safe: si rename falla, intenta remove+rename (preserva lo viejo si falla).
package atomicwrite

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AtomicWriteFile escribe data a path de forma atómica.
// Pasos: write tmp → Sync → Close → Chmod → Rename (con fallback Windows-safe)
//
// En Windows, os.Rename puede fallar si el destino existe/está bloqueado.
// Si rename falla, intenta remove+rename. Esto preserva el archivo viejo
// si algo sale mal (a diferencia de remove-before-rename que lo destruye).
func AtomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	// Usar CreateTemp para evitar colisiones
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	// Cleanup en caso de error
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	// Set perms antes del rename
	_ = os.Chmod(tmpPath, perm)

	return replace(tmpPath, path)
}

// ReplaceDir publica stageDir en destPath de forma atómica para lectores
// concurrentes: el árbol viejo (si existe) se renombra a un costado, el nuevo
// toma su lugar, y recién después se borra el viejo. Un lector con archivos
// abiertos sigue viendo el árbol viejo completo; uno que resuelve paths ve
// el viejo o el nuevo, nunca una mezcla.
func ReplaceDir(stageDir, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("mkdir parent: %w", err)
	}

	old := destPath + ".old-" + filepath.Base(stageDir)
	hadOld := false
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Rename(destPath, old); err != nil {
			return fmt.Errorf("retire old tree: %w", err)
		}
		hadOld = true
	}

	if err := os.Rename(stageDir, destPath); err != nil {
		// Restaurar el árbol viejo: un deploy fallido nunca deja al lector sin contenido.
		if hadOld {
			_ = os.Rename(old, destPath)
		}
		return fmt.Errorf("publish new tree: %w", err)
	}

	if hadOld {
		_ = os.RemoveAll(old)
	}
	return nil
}

func replace(tmpPath, path string) error {
	// Try rename; si falla (Windows con archivo bloqueado), try remove+rename
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename: %v (after remove: %v)", err, err2)
		}
	}
	return nil
}
