package secondary

import "errors"

// Sentinel errors shared by secondary-port implementations. Services branch
// on these with errors.Is; adapters wrap them with context.
var (
	// ErrWorkspaceUnavailable indicates the workspace backing store could
	// not be reached. Transient - callers may retry. Never swallowed by
	// reconciliation: stale phase data must not drive advancement.
	ErrWorkspaceUnavailable = errors.New("workspace unavailable")

	// ErrFileNotFound indicates a requested path does not exist. Internal
	// to inspection - phase derivation treats it as "artifact absent".
	ErrFileNotFound = errors.New("file not found")

	// ErrAgentUnavailable indicates the external agent runner rejected a
	// launch (capacity, unknown persona). Safe to retry with backoff.
	ErrAgentUnavailable = errors.New("agent runner unavailable")

	// ErrNotFound indicates a persistence lookup matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates an optimistic concurrency check failed:
	// the record changed between read and write. Callers re-read and retry.
	ErrVersionConflict = errors.New("version conflict")
)
