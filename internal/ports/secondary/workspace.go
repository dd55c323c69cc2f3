package secondary

import "context"

// WorkspaceEntry describes one entry in a workspace directory listing.
type WorkspaceEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

// WorkspaceInspector defines the secondary port for read-only workspace
// observation. It holds no state: the workspace file tree it reads is the
// ultimate source of truth for phase completion. Implementations must keep
// calls bounded by the supplied context - a hung backing store surfaces as
// ErrWorkspaceUnavailable, never as an indefinite block.
type WorkspaceInspector interface {
	// ListEntries lists the entries under subpath within the workspace.
	// A missing subpath is a legitimate state (a pre-phase workflow has no
	// specs/ directory yet) and yields an empty slice, not an error.
	// Fails with ErrWorkspaceUnavailable when the backing store cannot be
	// reached.
	ListEntries(ctx context.Context, workspacePath, subpath string) ([]WorkspaceEntry, error)

	// ReadFile reads a file at the given relative path. Fails with
	// ErrFileNotFound when the path does not exist, ErrWorkspaceUnavailable
	// on I/O failure.
	ReadFile(ctx context.Context, workspacePath, relPath string) ([]byte, error)

	// Exists reports whether the relative path exists. Never errors for a
	// missing path, only for genuine I/O failure.
	Exists(ctx context.Context, workspacePath, relPath string) (bool, error)
}
