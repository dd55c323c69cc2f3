// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the application drives
// external systems.
package secondary

import "context"

// WorkflowRepository defines the secondary port for RFE workflow persistence.
type WorkflowRepository interface {
	// Create persists a new workflow.
	Create(ctx context.Context, workflow *WorkflowRecord) error

	// GetByID retrieves a workflow by its ID.
	GetByID(ctx context.Context, id string) (*WorkflowRecord, error)

	// List retrieves workflows matching the given filters.
	List(ctx context.Context, filters WorkflowFilters) ([]*WorkflowRecord, error)

	// Update updates title, description and selected agents.
	Update(ctx context.Context, workflow *WorkflowRecord) error

	// Delete removes a workflow and its sessions from persistence.
	// The workspace and its artifacts are untouched.
	Delete(ctx context.Context, id string) error

	// GetNextID returns the next available workflow ID.
	GetNextID(ctx context.Context) (string, error)

	// CompareAndSetPhase updates the cached phase only if the stored
	// version still matches expectedVersion, bumping the version on
	// success. Returns ErrVersionConflict when another writer got there
	// first. This serializes the reconcile step per workflow id.
	CompareAndSetPhase(ctx context.Context, id, derivedPhase string, expectedVersion int) error

	// UpdateStatus updates the workflow status (active/paused/completed/failed).
	UpdateStatus(ctx context.Context, id, status string) error
}

// WorkflowRecord represents an RFE workflow as stored in persistence.
// CurrentPhase is a cache of the last derived value, never the source of
// truth for advancement decisions.
type WorkflowRecord struct {
	ID             string
	Title          string
	Description    string
	RepoURL        string
	RepoBranch     string
	RepoClonePath  string // Empty string means null
	WorkspacePath  string
	SelectedAgents string // JSON array of persona ids
	CurrentPhase   string
	Status         string
	Version        int // Optimistic concurrency counter, bumped by phase updates
	CreatedAt      string
	UpdatedAt      string
}

// WorkflowFilters contains filter options for querying workflows.
type WorkflowFilters struct {
	Status string
	Phase  string
	Limit  int
}

// SessionRepository defines the secondary port for agent session persistence.
// Sessions are owned by their workflow and are removed with it.
type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *SessionRecord) error

	// GetByID retrieves a session by its ID.
	GetByID(ctx context.Context, id string) (*SessionRecord, error)

	// ListByWorkflow retrieves sessions for a workflow in creation order,
	// optionally filtered by phase.
	ListByWorkflow(ctx context.Context, workflowID, phaseFilter string) ([]*SessionRecord, error)

	// ListInFlight retrieves pending/running sessions for a workflow.
	ListInFlight(ctx context.Context, workflowID string) ([]*SessionRecord, error)

	// UpdateStatus updates a session status with optional timestamps.
	UpdateStatus(ctx context.Context, id, status string, setStarted, setCompleted bool) error

	// WorkflowExists checks if a workflow exists (for validation).
	WorkflowExists(ctx context.Context, workflowID string) (bool, error)
}

// SessionRecord represents an agent session as stored in persistence.
type SessionRecord struct {
	ID                   string
	WorkflowID           string
	Phase                string
	AgentPersona         string
	Status               string // pending, running, completed, failed, stopped
	Prompt               string
	RunnerHandle         string // Opaque handle from the agent runner
	ProducedArtifactPath string // Empty string means null - hint only, never trusted over inspection
	CreatedAt            string
	StartedAt            string // Empty string means null
	CompletedAt          string // Empty string means null
}
