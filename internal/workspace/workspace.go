package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	inputExt   = ".m4a"
	outputName = "audio.mp3"
)

// Manager hands out one private directory per request under a shared root
type Manager struct {
	root   string
	logger *zap.Logger
}

// NewManager creates the root directory if needed
func NewManager(root string, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root %s: %w", root, err)
	}
	return &Manager{root: root, logger: logger}, nil
}

// Workspace is a request-scoped directory holding the uploaded audio and the
// synthesized reply. Release removes it.
type Workspace struct {
	ID  string
	Dir string

	logger *zap.Logger
}

// Acquire creates a fresh workspace
func (m *Manager) Acquire() (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{ID: id, Dir: dir, logger: m.logger}, nil
}

// SaveInput writes the upload to <dir>/<field>.m4a and returns the path
func (w *Workspace) SaveInput(field string, r io.Reader) (string, error) {
	if field == "" {
		return "", fmt.Errorf("form field name is required")
	}
	path := filepath.Join(w.Dir, filepath.Base(field)+inputExt)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create input file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write input file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close input file: %w", err)
	}

	return path, nil
}

// OutputPath is where the synthesized audio is written
func (w *Workspace) OutputPath() string {
	return filepath.Join(w.Dir, outputName)
}

// Release removes the workspace and everything in it. Safe to call more than once.
func (w *Workspace) Release() {
	if err := os.RemoveAll(w.Dir); err != nil {
		w.logger.Warn("Failed to remove workspace",
			zap.String("workspace", w.ID),
			zap.Error(err))
	}
}
