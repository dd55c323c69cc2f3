// Package app contains the application services implementing the primary
// ports. Services orchestrate the pure core logic with the secondary adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/rfe/internal/core/phase"
	"github.com/example/rfe/internal/ports/secondary"
)

// inspectTimeout bounds a single evidence snapshot. A workspace on a hung
// mount surfaces as ErrWorkspaceUnavailable instead of blocking the caller.
const inspectTimeout = 5 * time.Second

// casAttempts bounds the reconcile write-retry loop under contention.
const casAttempts = 3

// Reconciler aligns a workflow's cached phase with workspace evidence.
// The cached phase is a projection; the artifacts on disk are the only
// source of truth, and reconciliation is how the projection catches up.
type Reconciler struct {
	workflowRepo secondary.WorkflowRepository
	inspector    secondary.WorkspaceInspector
	events       secondary.EventLogger
}

// NewReconciler creates a Reconciler with its dependencies.
func NewReconciler(workflowRepo secondary.WorkflowRepository, inspector secondary.WorkspaceInspector, events secondary.EventLogger) *Reconciler {
	return &Reconciler{workflowRepo: workflowRepo, inspector: inspector, events: events}
}

// ReconcileResult describes the outcome of one reconciliation.
type ReconcileResult struct {
	Derived  phase.Phase
	Previous phase.Phase
	Changed  bool
	// Regressed is set when the derived phase moved backwards, which means
	// an artifact disappeared out-of-band.
	Regressed bool
	// Evidence is the snapshot the derivation was computed from. Advancement
	// checks must reuse this snapshot, not take a second look.
	Evidence phase.Evidence
}

// Inspect takes a point-in-time evidence snapshot of the workspace.
func (r *Reconciler) Inspect(ctx context.Context, workspacePath string) (phase.Evidence, error) {
	ctx, cancel := context.WithTimeout(ctx, inspectTimeout)
	defer cancel()

	ev := make(phase.Evidence)
	for _, def := range phase.Definitions() {
		exists, err := r.inspector.Exists(ctx, workspacePath, def.ArtifactPath)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", def.ArtifactPath, err)
		}
		ev[def.Phase] = exists
	}
	return ev, nil
}

// Reconcile derives the current phase from a fresh evidence snapshot and
// persists it when it differs from the cached value. The record is updated in
// place so callers see the reconciled state.
//
// Persistence uses compare-and-set on the record version: a concurrent
// reconciler winning the race is not an error, the loop re-reads and retries
// against the fresh record. Reconcile never touches the workflow status.
func (r *Reconciler) Reconcile(ctx context.Context, record *secondary.WorkflowRecord) (*ReconcileResult, error) {
	ev, err := r.Inspect(ctx, record.WorkspacePath)
	if err != nil {
		return nil, err
	}

	derived := phase.Derive(ev)
	previous := phase.Phase(record.CurrentPhase)
	result := &ReconcileResult{
		Derived:   derived,
		Previous:  previous,
		Changed:   derived != previous,
		Regressed: derived != previous && phase.Before(derived, previous),
		Evidence:  ev,
	}
	if !result.Changed {
		return result, nil
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		err := r.workflowRepo.CompareAndSetPhase(ctx, record.ID, string(derived), record.Version)
		if err == nil {
			record.CurrentPhase = string(derived)
			record.Version++
			r.events.PhaseTransition(record.ID, previous, derived, result.Regressed)
			return result, nil
		}
		if !errors.Is(err, secondary.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to persist derived phase: %w", err)
		}

		// Lost the race. Re-read and retry; the other writer may already
		// have landed the same derivation.
		fresh, err := r.workflowRepo.GetByID(ctx, record.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read workflow after version conflict: %w", err)
		}
		*record = *fresh
		if record.CurrentPhase == string(derived) {
			return result, nil
		}
	}
	return nil, fmt.Errorf("failed to reconcile workflow %s: %w", record.ID, secondary.ErrVersionConflict)
}
