package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// Manager handles the workspace directory of a single run.
type Manager struct {
	baseDir string
	dir     string
	keep    bool // If true, Cleanup leaves the directory in place
}

// NewManager creates a workspace manager placing directories under baseDir
// (the system temp dir when empty).
func NewManager(baseDir string, keep bool) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir, keep: keep}
}

// Create makes a fresh timestamped directory.
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return errors.FileSystemError("failed to create workspace base directory").
			WithCause(err).
			WithContext("path", m.baseDir).
			Build()
	}
	pattern := fmt.Sprintf("docpublish-%s-*", time.Now().Format("20060102-150405"))
	dir, err := os.MkdirTemp(m.baseDir, pattern)
	if err != nil {
		return errors.FileSystemError("failed to create workspace directory").
			WithCause(err).
			WithContext("path", m.baseDir).
			Build()
	}
	m.dir = dir
	slog.Debug("Created workspace", logfields.Path(dir))
	return nil
}

// GetPath returns the path to the workspace directory
func (m *Manager) GetPath() string {
	return m.dir
}

// Cleanup removes the workspace directory unless the manager keeps it.
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}
	if m.keep {
		slog.Info("Keeping workspace", logfields.Path(m.dir))
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return errors.FileSystemError("failed to cleanup workspace").
			WithCause(err).
			WithContext("path", m.dir).
			Build()
	}
	slog.Debug("Cleaned up workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}

// CreateSubdir creates a subdirectory within the workspace
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.dir == "" {
		return "", fmt.Errorf("workspace not created")
	}
	subdir := filepath.Join(m.dir, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}
	return subdir, nil
}
