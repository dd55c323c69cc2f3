package filesystem_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/rfe/internal/adapters/filesystem"
	"github.com/example/rfe/internal/ports/secondary"
)

func setupWorkspace(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	if err := os.MkdirAll(filepath.Join(ws, "specs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws, "specs", "spec.md"), []byte("# Spec\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return ws
}

func TestInspector_ListEntries(t *testing.T) {
	ws := setupWorkspace(t)
	inspector := filesystem.NewInspector()
	ctx := context.Background()

	entries, err := inspector.ListEntries(ctx, ws, "specs")
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "spec.md" || entries[0].IsDir {
		t.Errorf("unexpected entries: %+v", entries)
	}
	if entries[0].Size == 0 {
		t.Error("file entry should carry a size")
	}
}

func TestInspector_ListEntries_MissingDirIsEmpty(t *testing.T) {
	ws := t.TempDir()
	inspector := filesystem.NewInspector()

	// A pre-phase workflow has no specs/ directory yet - that is a state,
	// not an error.
	entries, err := inspector.ListEntries(context.Background(), ws, "specs")
	if err != nil {
		t.Fatalf("missing subpath should not error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty listing, got %d entries", len(entries))
	}
}

func TestInspector_ReadFile(t *testing.T) {
	ws := setupWorkspace(t)
	inspector := filesystem.NewInspector()
	ctx := context.Background()

	data, err := inspector.ReadFile(ctx, ws, "specs/spec.md")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "# Spec\n" {
		t.Errorf("content = %q", data)
	}

	_, err = inspector.ReadFile(ctx, ws, "specs/plan.md")
	if !errors.Is(err, secondary.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestInspector_Exists(t *testing.T) {
	ws := setupWorkspace(t)
	inspector := filesystem.NewInspector()
	ctx := context.Background()

	exists, err := inspector.Exists(ctx, ws, "specs/spec.md")
	if err != nil || !exists {
		t.Errorf("Exists(spec.md) = %v, %v", exists, err)
	}

	exists, err = inspector.Exists(ctx, ws, "specs/tasks.md")
	if err != nil {
		t.Fatalf("Exists must not error for a missing path: %v", err)
	}
	if exists {
		t.Error("tasks.md should not exist")
	}
}

func TestInspector_PathsCannotEscapeWorkspace(t *testing.T) {
	ws := setupWorkspace(t)
	outside := filepath.Join(filepath.Dir(ws), "outside.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	inspector := filesystem.NewInspector()

	exists, err := inspector.Exists(context.Background(), ws, "../outside.txt")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("relative path escaped the workspace root")
	}
}

func TestInspector_CancelledContext(t *testing.T) {
	ws := setupWorkspace(t)
	inspector := filesystem.NewInspector()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inspector.ListEntries(ctx, ws, "specs")
	if !errors.Is(err, secondary.ErrWorkspaceUnavailable) {
		t.Errorf("cancelled context should surface ErrWorkspaceUnavailable, got %v", err)
	}
	if _, err := inspector.ReadFile(ctx, ws, "specs/spec.md"); !errors.Is(err, secondary.ErrWorkspaceUnavailable) {
		t.Errorf("expected ErrWorkspaceUnavailable, got %v", err)
	}
	if _, err := inspector.Exists(ctx, ws, "specs/spec.md"); !errors.Is(err, secondary.ErrWorkspaceUnavailable) {
		t.Errorf("expected ErrWorkspaceUnavailable, got %v", err)
	}
}
