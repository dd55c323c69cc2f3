// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/example/rfe/internal/ports/secondary"
)

// Inspector implements secondary.WorkspaceInspector over a local directory
// tree. It is stateless: every call reads the filesystem directly, which is
// the source of truth for phase completion.
type Inspector struct{}

// NewInspector creates a new filesystem workspace inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// ListEntries lists the entries under subpath within the workspace.
// A missing subpath yields an empty slice - a workflow that has not reached
// a phase simply has no directory for it yet.
func (i *Inspector) ListEntries(ctx context.Context, workspacePath, subpath string) ([]secondary.WorkspaceEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", secondary.ErrWorkspaceUnavailable, err)
	}

	dirEntries, err := os.ReadDir(resolve(workspacePath, subpath))
	if errors.Is(err, fs.ErrNotExist) {
		return []secondary.WorkspaceEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", secondary.ErrWorkspaceUnavailable, subpath, err)
	}

	entries := make([]secondary.WorkspaceEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		entry := secondary.WorkspaceEntry{Name: de.Name(), IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil && !de.IsDir() {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReadFile reads a file at the given relative path.
func (i *Inspector) ReadFile(ctx context.Context, workspacePath, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", secondary.ErrWorkspaceUnavailable, err)
	}

	data, err := os.ReadFile(resolve(workspacePath, relPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", relPath, secondary.ErrFileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", secondary.ErrWorkspaceUnavailable, relPath, err)
	}
	return data, nil
}

// Exists reports whether the relative path exists. Absence is a normal
// answer, never an error.
func (i *Inspector) Exists(ctx context.Context, workspacePath, relPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %v", secondary.ErrWorkspaceUnavailable, err)
	}

	_, err := os.Stat(resolve(workspacePath, relPath))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: checking %s: %v", secondary.ErrWorkspaceUnavailable, relPath, err)
	}
	return true, nil
}

// resolve joins a relative path onto the workspace root. Rooting the
// relative part at "/" first neutralizes any ".." segments so a path can
// never escape the workspace.
func resolve(workspacePath, relPath string) string {
	return filepath.Join(workspacePath, filepath.Clean(filepath.Join("/", relPath)))
}
