package logging

import (
	"log"
	"os"

	"github.com/example/rfe/internal/core/phase"
	"github.com/example/rfe/internal/ports/secondary"
)

// EventLogger writes lifecycle events to a standard logger.
type EventLogger struct {
	logger *log.Logger
}

var _ secondary.EventLogger = (*EventLogger)(nil)

// NewEventLogger creates a logger writing to stderr.
func NewEventLogger() *EventLogger {
	return &EventLogger{logger: log.New(os.Stderr, "", log.LstdFlags)}
}

// NewEventLoggerWith wraps an existing logger. Used in tests.
func NewEventLoggerWith(l *log.Logger) *EventLogger {
	return &EventLogger{logger: l}
}

func (e *EventLogger) PhaseTransition(workflowID string, from, to phase.Phase, regressed bool) {
	if regressed {
		e.logger.Printf("workflow %s phase regressed: %s -> %s", workflowID, from, to)
		return
	}
	e.logger.Printf("workflow %s phase: %s -> %s", workflowID, from, to)
}

func (e *EventLogger) SessionEvent(workflowID, sessionID, persona, status string) {
	e.logger.Printf("workflow %s session %s (%s): %s", workflowID, sessionID, persona, status)
}
