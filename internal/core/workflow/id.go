package workflow

import (
	"fmt"

	"github.com/example/rfe/internal/core/phase"
)

// GenerateWorkflowID produces the next workflow ID from the highest existing
// numeric suffix.
func GenerateWorkflowID(maxID int) string {
	return fmt.Sprintf("RFE-%03d", maxID+1)
}

// InitialStatus returns the status every new workflow starts in.
func InitialStatus() string {
	return StatusActive
}

// InitialPhase returns the phase every new workflow starts in.
func InitialPhase() phase.Phase {
	return phase.Pre
}
