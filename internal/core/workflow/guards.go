// Package workflow contains the pure business logic for workflow lifecycle
// operations. This is part of the Functional Core - no I/O, only pure functions.
package workflow

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/example/rfe/internal/core/phase"
)

// Status values for a workflow. Status is independent of phase: a workflow
// can be paused mid-plan.
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Agent-set bounds. A workflow carries between 1 and 8 selected personas.
const (
	MinSelectedAgents = 1
	MaxSelectedAgents = 8
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// ValidateTitle checks the workflow title at the creation boundary.
func ValidateTitle(title string) GuardResult {
	if strings.TrimSpace(title) == "" {
		return GuardResult{Allowed: false, Reason: "title must not be empty"}
	}
	return GuardResult{Allowed: true}
}

// ValidateDescription checks the workflow description at the creation boundary.
func ValidateDescription(description string) GuardResult {
	if strings.TrimSpace(description) == "" {
		return GuardResult{Allowed: false, Reason: "description must not be empty"}
	}
	return GuardResult{Allowed: true}
}

// ValidateRepoURL checks the target repository URL.
func ValidateRepoURL(rawURL string) GuardResult {
	if strings.TrimSpace(rawURL) == "" {
		return GuardResult{Allowed: false, Reason: "target repository URL must not be empty"}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("malformed repository URL %q", rawURL)}
	}
	return GuardResult{Allowed: true}
}

// ValidateSelectedAgents checks the persona set at the boundary: bounded size,
// no blanks, no duplicates.
func ValidateSelectedAgents(agents []string) GuardResult {
	if len(agents) < MinSelectedAgents {
		return GuardResult{Allowed: false, Reason: "at least one agent persona must be selected"}
	}
	if len(agents) > MaxSelectedAgents {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("at most %d agent personas may be selected (got %d)", MaxSelectedAgents, len(agents)),
		}
	}
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if strings.TrimSpace(a) == "" {
			return GuardResult{Allowed: false, Reason: "agent persona must not be blank"}
		}
		if seen[a] {
			return GuardResult{Allowed: false, Reason: fmt.Sprintf("duplicate agent persona %q", a)}
		}
		seen[a] = true
	}
	return GuardResult{Allowed: true}
}

// CanPause evaluates whether a workflow can be paused.
// Rule: only active workflows pause. Pause does not touch in-flight sessions.
func CanPause(workflowID, status string) GuardResult {
	if status != StatusActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("workflow %s is %s, only active workflows can be paused", workflowID, status),
		}
	}
	return GuardResult{Allowed: true}
}

// CanResume evaluates whether a workflow can be resumed.
func CanResume(workflowID, status string) GuardResult {
	if status != StatusPaused {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("workflow %s is %s, only paused workflows can be resumed", workflowID, status),
		}
	}
	return GuardResult{Allowed: true}
}

// CanMutateAgents evaluates whether the selected-agent set may change.
// Rule: only while the workflow is non-terminal and not paused.
func CanMutateAgents(workflowID, status string, current phase.Phase) GuardResult {
	if phase.IsTerminal(current) {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("workflow %s is completed, selected agents are frozen", workflowID),
		}
	}
	if status != StatusActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("workflow %s is %s, selected agents can only change while active", workflowID, status),
		}
	}
	return GuardResult{Allowed: true}
}

// SessionLaunchContext provides context for session-launch guards.
type SessionLaunchContext struct {
	WorkflowID     string
	Status         string
	DerivedPhase   phase.Phase
	RequestedPhase phase.Phase
	ArtifactExists bool
	Regenerate     bool
}

// CanLaunchSessions evaluates whether phase sessions may be launched.
// Rules: the workflow must be active; the requested phase must be the entry
// phase for the derived current phase; re-running a phase whose artifact
// already exists requires an explicit regenerate confirmation.
func CanLaunchSessions(ctx SessionLaunchContext) GuardResult {
	if ctx.Status == StatusPaused {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("workflow %s is paused, resume it before launching sessions", ctx.WorkflowID),
		}
	}
	if ctx.Status != StatusActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("workflow %s is %s, sessions can only be launched while active", ctx.WorkflowID, ctx.Status),
		}
	}

	entry, ok := phase.EntryPhase(ctx.DerivedPhase)
	if !ok && !ctx.Regenerate {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("workflow %s is completed, use regenerate to re-run a phase", ctx.WorkflowID),
		}
	}
	if ctx.Regenerate {
		// Regeneration targets any gated phase, bypassing the entry check.
		if !phase.IsGated(ctx.RequestedPhase) {
			return GuardResult{
				Allowed: false,
				Reason:  fmt.Sprintf("phase %s has no artifact to regenerate", ctx.RequestedPhase),
			}
		}
		return GuardResult{Allowed: true}
	}
	if ctx.RequestedPhase != entry {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("workflow %s is in phase %s, sessions for %s cannot start now",
				ctx.WorkflowID, ctx.DerivedPhase, ctx.RequestedPhase),
		}
	}
	if ctx.ArtifactExists {
		def, _ := phase.Lookup(ctx.RequestedPhase)
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("%s already exists, re-running %s overwrites it - pass regenerate to confirm",
				def.ArtifactPath, ctx.RequestedPhase),
		}
	}
	return GuardResult{Allowed: true}
}
