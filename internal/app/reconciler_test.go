package app

import (
	"context"
	"errors"
	"testing"

	"github.com/example/rfe/internal/core/phase"
	"github.com/example/rfe/internal/ports/secondary"
)

func TestReconcile_NoArtifacts(t *testing.T) {
	e := newEnv(t)
	record := e.seedWorkflow(t, "RFE-001", "pre", "active")

	result, err := e.reconciler.Reconcile(context.Background(), record)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.Derived != phase.Pre {
		t.Errorf("Derived = %s, want pre", result.Derived)
	}
	if result.Changed {
		t.Error("phase should not change when nothing changed")
	}
	if e.workflowRepo.casCalls != 0 {
		t.Errorf("no CAS write expected for an unchanged phase, got %d", e.workflowRepo.casCalls)
	}
}

func TestReconcile_ArtifactMovesPhaseForward(t *testing.T) {
	e := newEnv(t)
	record := e.seedWorkflow(t, "RFE-001", "pre", "active")
	e.inspector.put(record.WorkspacePath, "specs/spec.md")

	result, err := e.reconciler.Reconcile(context.Background(), record)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.Derived != phase.Plan {
		t.Errorf("Derived = %s, want plan", result.Derived)
	}
	if !result.Changed || result.Regressed {
		t.Errorf("want forward change, got changed=%v regressed=%v", result.Changed, result.Regressed)
	}
	if record.CurrentPhase != "plan" {
		t.Errorf("record phase = %s, want plan", record.CurrentPhase)
	}
	if record.Version != 1 {
		t.Errorf("record version = %d, want 1", record.Version)
	}

	stored, _ := e.workflowRepo.GetByID(context.Background(), "RFE-001")
	if stored.CurrentPhase != "plan" {
		t.Errorf("persisted phase = %s, want plan", stored.CurrentPhase)
	}
	if len(e.events.transitions) != 1 || e.events.transitions[0] != "RFE-001:pre->plan" {
		t.Errorf("unexpected transition events: %v", e.events.transitions)
	}
}

func TestReconcile_AllArtifactsMeansCompleted(t *testing.T) {
	e := newEnv(t)
	record := e.seedWorkflow(t, "RFE-001", "tasks", "active")
	for _, rel := range []string{"specs/spec.md", "specs/plan.md", "specs/tasks.md"} {
		e.inspector.put(record.WorkspacePath, rel)
	}

	result, err := e.reconciler.Reconcile(context.Background(), record)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.Derived != phase.Completed {
		t.Errorf("Derived = %s, want completed", result.Derived)
	}
}

func TestReconcile_ArtifactDeletionRegresses(t *testing.T) {
	e := newEnv(t)
	record := e.seedWorkflow(t, "RFE-001", "completed", "completed")
	e.inspector.put(record.WorkspacePath, "specs/spec.md")
	e.inspector.put(record.WorkspacePath, "specs/plan.md")

	result, err := e.reconciler.Reconcile(context.Background(), record)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.Derived != phase.Tasks {
		t.Errorf("Derived = %s, want tasks", result.Derived)
	}
	if !result.Regressed {
		t.Error("deleting tasks.md should register as a regression")
	}
	if len(e.events.transitions) != 1 || e.events.transitions[0] != "RFE-001:completed->tasks:regressed" {
		t.Errorf("unexpected transition events: %v", e.events.transitions)
	}
}

func TestReconcile_NeverTouchesStatus(t *testing.T) {
	e := newEnv(t)
	record := e.seedWorkflow(t, "RFE-001", "pre", "paused")
	e.inspector.put(record.WorkspacePath, "specs/spec.md")

	if _, err := e.reconciler.Reconcile(context.Background(), record); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	stored, _ := e.workflowRepo.GetByID(context.Background(), "RFE-001")
	if stored.Status != "paused" {
		t.Errorf("reconcile changed status to %s", stored.Status)
	}
	if len(e.workflowRepo.statusUpdates) != 0 {
		t.Errorf("reconcile issued status updates: %v", e.workflowRepo.statusUpdates)
	}
}

func TestReconcile_RetriesOnVersionConflict(t *testing.T) {
	e := newEnv(t)
	record := e.seedWorkflow(t, "RFE-001", "pre", "active")
	e.inspector.put(record.WorkspacePath, "specs/spec.md")
	e.workflowRepo.casRejections = 1

	result, err := e.reconciler.Reconcile(context.Background(), record)
	if err != nil {
		t.Fatalf("Reconcile should recover from a single conflict: %v", err)
	}
	if result.Derived != phase.Plan {
		t.Errorf("Derived = %s, want plan", result.Derived)
	}
	if e.workflowRepo.casCalls != 2 {
		t.Errorf("casCalls = %d, want 2", e.workflowRepo.casCalls)
	}
	stored, _ := e.workflowRepo.GetByID(context.Background(), "RFE-001")
	if stored.CurrentPhase != "plan" {
		t.Errorf("persisted phase = %s, want plan", stored.CurrentPhase)
	}
}

func TestReconcile_ConcurrentWriterAlreadyLanded(t *testing.T) {
	e := newEnv(t)
	record := e.seedWorkflow(t, "RFE-001", "pre", "active")
	e.inspector.put(record.WorkspacePath, "specs/spec.md")

	// Another reconciler lands the same derivation between our read and
	// our CAS attempt.
	stale := *record
	if _, err := e.reconciler.Reconcile(context.Background(), record); err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}

	result, err := e.reconciler.Reconcile(context.Background(), &stale)
	if err != nil {
		t.Fatalf("second reconcile should observe the landed write: %v", err)
	}
	if result.Derived != phase.Plan {
		t.Errorf("Derived = %s, want plan", result.Derived)
	}
	if stale.CurrentPhase != "plan" {
		t.Errorf("stale record should be refreshed to plan, got %s", stale.CurrentPhase)
	}
}

func TestReconcile_WorkspaceUnavailable(t *testing.T) {
	e := newEnv(t)
	record := e.seedWorkflow(t, "RFE-001", "plan", "active")
	e.inspector.unavailable = true

	_, err := e.reconciler.Reconcile(context.Background(), record)
	if !errors.Is(err, secondary.ErrWorkspaceUnavailable) {
		t.Errorf("want ErrWorkspaceUnavailable, got %v", err)
	}
	if record.CurrentPhase != "plan" {
		t.Errorf("cached phase must be untouched on inspection failure, got %s", record.CurrentPhase)
	}
}

func TestInspect_SnapshotsEveryGatedPhase(t *testing.T) {
	e := newEnv(t)
	e.inspector.put("/workspaces/RFE-001", "specs/plan.md")

	ev, err := e.reconciler.Inspect(context.Background(), "/workspaces/RFE-001")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	want := phase.Evidence{phase.Specify: false, phase.Plan: true, phase.Tasks: false}
	for p, exists := range want {
		if ev[p] != exists {
			t.Errorf("evidence[%s] = %v, want %v", p, ev[p], exists)
		}
	}
}
