package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sukureipu/pkg/errors"
)

// Manager handles destination filesystem operations. All paths it
// touches are resolved against a single base directory.
type Manager struct {
	basePath string
}

// NewManager creates a storage manager rooted at basePath
func NewManager(basePath string) *Manager {
	return &Manager{basePath: basePath}
}

// BasePath returns the output base directory
func (m *Manager) BasePath() string {
	return m.basePath
}

// Resolve joins a rendered relative path under the base directory
func (m *Manager) Resolve(rel string) string {
	return filepath.Join(m.basePath, rel)
}

// Exists reports whether a file already exists at path
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates the directory tree for path's parent.
// Failure is a file_write error, fatal to the run.
func (m *Manager) EnsureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New(errors.ErrorTypeFileWrite,
			fmt.Sprintf("failed to create directory for %s: %v", path, err))
	}
	return nil
}

// Save streams r to path, truncating or creating as needed. The data is
// written to a temporary sibling first and renamed into place so a
// failed transfer never leaves a partial file behind.
func (m *Manager) Save(r io.Reader, path string) error {
	if err := m.EnsureDir(path); err != nil {
		return err
	}

	tempPath := path + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return errors.New(errors.ErrorTypeFileWrite,
			fmt.Sprintf("failed to create %s: %v", tempPath, err))
	}

	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()

	if copyErr != nil {
		os.Remove(tempPath)
		return errors.New(errors.ErrorTypeFileWrite,
			fmt.Sprintf("failed to write %s: %v", path, copyErr))
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return errors.New(errors.ErrorTypeFileWrite,
			fmt.Sprintf("failed to close %s: %v", path, closeErr))
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.New(errors.ErrorTypeFileWrite,
			fmt.Sprintf("failed to rename %s: %v", tempPath, err))
	}

	return nil
}
