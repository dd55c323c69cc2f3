package primary

import (
	"context"

	"github.com/example/rfe/internal/core/phase"
)

// SessionService defines the primary port for agent session operations.
type SessionService interface {
	// StartPhaseSessions fans out one agent session per requested persona
	// for the given phase. The phase must be the workflow's current
	// derived phase (or its entry phase); otherwise the call fails with a
	// PhaseNotReadyError. Re-running a phase whose artifact already
	// exists requires Regenerate.
	StartPhaseSessions(ctx context.Context, req StartPhaseSessionsRequest) (*StartPhaseSessionsResponse, error)

	// ListSessions lists a workflow's sessions in creation order.
	ListSessions(ctx context.Context, workflowID string, phaseFilter phase.Phase) ([]*AgentSession, error)

	// SyncSessions polls the agent runner for every in-flight session of a
	// workflow and persists observed status transitions. Session status is
	// informational only - phase completion remains governed by artifacts.
	SyncSessions(ctx context.Context, workflowID string) (*SyncSessionsResponse, error)

	// StopSession asks the runner to terminate one session.
	StopSession(ctx context.Context, sessionID string) error
}

// AgentSession represents one unit of external persona work at the port
// boundary.
type AgentSession struct {
	ID                   string
	WorkflowID           string
	Phase                phase.Phase
	AgentPersona         string
	Status               string
	Prompt               string
	ProducedArtifactPath string
	CreatedAt            string
	StartedAt            string
	CompletedAt          string
}

// StartPhaseSessionsRequest contains parameters for launching phase sessions.
// Personas defaults to the workflow's selected agents when empty.
type StartPhaseSessionsRequest struct {
	WorkflowID string
	Phase      phase.Phase
	Personas   []string
	Regenerate bool
}

// StartPhaseSessionsResponse contains the launched sessions.
type StartPhaseSessionsResponse struct {
	Sessions []*AgentSession
	// Rerun is set when the phase artifact already existed and the launch
	// was confirmed as a regeneration.
	Rerun bool
}

// SyncSessionsResponse summarizes a session status sync.
type SyncSessionsResponse struct {
	Checked     int
	Transitions []SessionTransition
}

// SessionTransition records one observed status change.
type SessionTransition struct {
	SessionID string
	Persona   string
	From      string
	To        string
}
