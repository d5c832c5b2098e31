package media

import (
	"fmt"
	"os"
)

// Workspace is a temporary directory holding the media artifacts of one
// pipeline run. Every run owns exactly one workspace; Cleanup removes the
// directory and all intermediate files regardless of how the run ended.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh temporary directory under baseDir.
// An empty baseDir uses the operating system default temp directory.
func NewWorkspace(baseDir string) (*Workspace, error) {
	dir, err := os.MkdirTemp(baseDir, "podshot-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Cleanup removes the workspace and everything in it. Safe to call twice.
func (w *Workspace) Cleanup() error {
	if w == nil || w.dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return err
	}
	w.dir = ""
	return nil
}
