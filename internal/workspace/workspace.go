package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is an ephemeral, permission-locked directory holding plaintext
// while it is being edited. It is owned exclusively by the running process
// and removed in full by Close.
type Workspace struct {
	dir string
}

// Open creates a fresh workspace directory under the process-private
// temporary root. The directory is created with mode 0700 by the operating
// system before it becomes observable; there is no window in which group
// or other bits are set.
func Open() (*Workspace, error) {
	dir, err := os.MkdirTemp("", "agenix-*")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// NewFile creates an empty plaintext file inside the workspace. Mode 0600
// is applied at creation, never after: the file is opened with O_EXCL and
// the final permissions, so it is private from its first instant.
func (w *Workspace) NewFile(name string) (string, error) {
	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating plaintext file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("creating plaintext file: %w", err)
	}
	return path, nil
}

// WriteFile creates a plaintext file inside the workspace and fills it
// with data, preserving NewFile's permission guarantee.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path, err := w.NewFile(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing plaintext file: %w", err)
	}
	return path, nil
}

// Close removes the workspace and everything inside it. Callers defer it
// immediately after Open so removal happens on every exit path.
func (w *Workspace) Close() error {
	if w.dir == "" {
		return nil
	}
	dir := w.dir
	w.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing workspace: %w", err)
	}
	return nil
}
