// Package primary defines the primary ports (driving adapters) for the
// application. These are the interfaces through which the outside world
// drives the application.
package primary

import (
	"context"

	"github.com/example/rfe/internal/core/phase"
)

// WorkflowService defines the primary port for RFE workflow operations.
// Every read-side operation reconciles first: the phase callers see always
// reflects the latest workspace inspection, never a stale cache.
type WorkflowService interface {
	// CreateWorkflow creates a new workflow in phase pre, status active.
	CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (*CreateWorkflowResponse, error)

	// GetWorkflow reconciles and returns a workflow by ID.
	GetWorkflow(ctx context.Context, workflowID string) (*Workflow, error)

	// ListWorkflows lists workflows with optional filters. List views show
	// the cached phase; callers needing fresh state use GetWorkflow.
	ListWorkflows(ctx context.Context, filters WorkflowFilters) ([]*Workflow, error)

	// AdvanceWorkflow reconciles and evaluates advancement eligibility.
	// Advancement is a read of readiness, not a phase increment: the phase
	// itself only ever changes through artifact evidence. Returns an
	// AdvancementBlockedError naming the missing artifact when not ready.
	AdvanceWorkflow(ctx context.Context, workflowID string) (*AdvanceResponse, error)

	// UpdateWorkflow updates title, description and/or selected agents.
	UpdateWorkflow(ctx context.Context, req UpdateWorkflowRequest) error

	// PauseWorkflow pauses an active workflow. In-flight sessions keep
	// running; only new launches are prevented.
	PauseWorkflow(ctx context.Context, workflowID string) error

	// ResumeWorkflow resumes a paused workflow.
	ResumeWorkflow(ctx context.Context, workflowID string) error

	// DeleteWorkflow removes the workflow record and its sessions. The
	// workspace and its artifacts are left in place.
	DeleteWorkflow(ctx context.Context, workflowID string) error
}

// TargetRepository identifies where generated artifacts will eventually be
// committed. Immutable after creation.
type TargetRepository struct {
	URL       string
	Branch    string
	ClonePath string
}

// Workflow represents an RFE workflow at the port boundary.
type Workflow struct {
	ID               string
	Title            string
	Description      string
	TargetRepository TargetRepository
	WorkspacePath    string
	SelectedAgents   []string
	CurrentPhase     phase.Phase
	Status           string
	CreatedAt        string
	UpdatedAt        string
	// PhaseRegressed is set when the last reconcile observed the derived
	// phase move backwards (an artifact was removed out-of-band).
	PhaseRegressed bool
}

// CreateWorkflowRequest contains parameters for creating a workflow.
type CreateWorkflowRequest struct {
	Title            string
	Description      string
	TargetRepository TargetRepository
	SelectedAgents   []string
	// WorkspacePath overrides the default workspace location when set.
	WorkspacePath string
}

// CreateWorkflowResponse contains the result of creating a workflow.
type CreateWorkflowResponse struct {
	WorkflowID string
	Workflow   *Workflow
}

// AdvanceResponse contains the result of an advancement evaluation.
type AdvanceResponse struct {
	Workflow *Workflow
	// NextPhase is the gated phase whose sessions should be launched next.
	NextPhase phase.Phase
}

// WorkflowFilters contains filter options for listing workflows.
type WorkflowFilters struct {
	Status string
	Phase  string
	Limit  int
}

// UpdateWorkflowRequest contains parameters for updating a workflow.
// Empty fields are left unchanged; a nil SelectedAgents keeps the current set.
type UpdateWorkflowRequest struct {
	WorkflowID     string
	Title          string
	Description    string
	SelectedAgents []string
}
