package secondary

import "github.com/example/rfe/internal/core/phase"

// EventLogger records workflow lifecycle events for operators.
// Implementations must not fail the calling operation.
type EventLogger interface {
	// PhaseTransition records a derived-phase change on a workflow.
	PhaseTransition(workflowID string, from, to phase.Phase, regressed bool)

	// SessionEvent records an agent session status change.
	SessionEvent(workflowID, sessionID, persona, status string)
}
