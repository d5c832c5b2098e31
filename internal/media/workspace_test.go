package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspace_CleanupRemovesEverything(t *testing.T) {
	base := t.TempDir()

	ws, err := NewWorkspace(base)
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(ws.Dir(), "source.webm"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws.Dir(), "segment.wav"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ws.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("base dir has %d entries after cleanup, want 0", len(entries))
	}
}

func TestWorkspace_CleanupTwice(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	if err := ws.Cleanup(); err != nil {
		t.Fatalf("first Cleanup() error = %v", err)
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("second Cleanup() error = %v", err)
	}
}

func TestWorkspace_IsolatedDirs(t *testing.T) {
	base := t.TempDir()

	a, err := NewWorkspace(base)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewWorkspace(base)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Cleanup()
	defer b.Cleanup()

	if a.Dir() == b.Dir() {
		t.Error("two workspaces share a directory")
	}
}
