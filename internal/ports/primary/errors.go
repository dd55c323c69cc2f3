package primary

import (
	"fmt"

	"github.com/example/rfe/internal/core/phase"
)

// ValidationError indicates bad caller input at the service boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AdvancementBlockedError indicates the workflow is not ready to advance.
// MissingArtifact names the prerequisite file so callers can surface an
// actionable message.
type AdvancementBlockedError struct {
	WorkflowID      string
	CurrentPhase    phase.Phase
	MissingArtifact string
	Reason          string
}

func (e *AdvancementBlockedError) Error() string {
	return fmt.Sprintf("workflow %s cannot advance from %s: %s", e.WorkflowID, e.CurrentPhase, e.Reason)
}

// PhaseNotReadyError indicates a session launch targeted a phase other than
// the workflow's current derived phase.
type PhaseNotReadyError struct {
	WorkflowID     string
	RequestedPhase phase.Phase
	CurrentPhase   phase.Phase
	Reason         string
}

func (e *PhaseNotReadyError) Error() string {
	return fmt.Sprintf("phase %s not ready for workflow %s: %s", e.RequestedPhase, e.WorkflowID, e.Reason)
}
