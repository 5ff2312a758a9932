package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the application paths derived from the executable location.
type Paths struct {
	ExecutableDir string
}

// GetPaths returns the application paths relative to the executable location.
// Relative paths are never anchored at the current working directory.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	exeDir := filepath.Dir(exe)
	slog.Default().Debug("resolved executable directory",
		slog.String("exe_path", exe),
		slog.String("exe_dir", exeDir))

	return &Paths{ExecutableDir: exeDir}, nil
}

// Resolve anchors a relative path at the executable directory. Empty and
// absolute paths are returned unchanged.
func (p *Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.ExecutableDir, path)
}
