package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/example/rfe/internal/core/phase"
	"github.com/example/rfe/internal/core/workflow"
	"github.com/example/rfe/internal/ports/primary"
	"github.com/example/rfe/internal/ports/secondary"
)

// defaultRepoBranch is used when the caller does not name a branch.
const defaultRepoBranch = "main"

// WorkflowServiceImpl implements the primary.WorkflowService interface.
type WorkflowServiceImpl struct {
	workflowRepo  secondary.WorkflowRepository
	reconciler    *Reconciler
	events        secondary.EventLogger
	workspaceBase string
}

var _ primary.WorkflowService = (*WorkflowServiceImpl)(nil)

// NewWorkflowService creates a WorkflowServiceImpl with its dependencies.
// workspaceBase is the directory under which per-workflow workspaces live.
func NewWorkflowService(workflowRepo secondary.WorkflowRepository, reconciler *Reconciler, events secondary.EventLogger, workspaceBase string) *WorkflowServiceImpl {
	return &WorkflowServiceImpl{
		workflowRepo:  workflowRepo,
		reconciler:    reconciler,
		events:        events,
		workspaceBase: workspaceBase,
	}
}

// CreateWorkflow creates a new workflow in phase pre, status active.
func (s *WorkflowServiceImpl) CreateWorkflow(ctx context.Context, req primary.CreateWorkflowRequest) (*primary.CreateWorkflowResponse, error) {
	if g := workflow.ValidateTitle(req.Title); !g.Allowed {
		return nil, &primary.ValidationError{Field: "title", Message: g.Reason}
	}
	if g := workflow.ValidateDescription(req.Description); !g.Allowed {
		return nil, &primary.ValidationError{Field: "description", Message: g.Reason}
	}
	if g := workflow.ValidateRepoURL(req.TargetRepository.URL); !g.Allowed {
		return nil, &primary.ValidationError{Field: "repository", Message: g.Reason}
	}
	if g := workflow.ValidateSelectedAgents(req.SelectedAgents); !g.Allowed {
		return nil, &primary.ValidationError{Field: "agents", Message: g.Reason}
	}

	id, err := s.workflowRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
	}

	workspacePath := req.WorkspacePath
	if workspacePath == "" {
		workspacePath = filepath.Join(s.workspaceBase, id)
	}
	branch := req.TargetRepository.Branch
	if branch == "" {
		branch = defaultRepoBranch
	}
	agents, err := encodeAgents(req.SelectedAgents)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selected agents: %w", err)
	}

	record := &secondary.WorkflowRecord{
		ID:             id,
		Title:          req.Title,
		Description:    req.Description,
		RepoURL:        req.TargetRepository.URL,
		RepoBranch:     branch,
		RepoClonePath:  req.TargetRepository.ClonePath,
		WorkspacePath:  workspacePath,
		SelectedAgents: agents,
		CurrentPhase:   string(workflow.InitialPhase()),
		Status:         workflow.InitialStatus(),
	}
	if err := s.workflowRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	wf, err := toWorkflow(record, false)
	if err != nil {
		return nil, err
	}
	return &primary.CreateWorkflowResponse{WorkflowID: id, Workflow: wf}, nil
}

// GetWorkflow reconciles and returns a workflow by ID.
func (s *WorkflowServiceImpl) GetWorkflow(ctx context.Context, workflowID string) (*primary.Workflow, error) {
	record, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	result, err := s.reconciler.Reconcile(ctx, record)
	if err != nil {
		return nil, err
	}
	if err := s.applyStatusFlips(ctx, record, result); err != nil {
		return nil, err
	}
	return toWorkflow(record, result.Regressed)
}

// ListWorkflows lists workflows with optional filters. List views serve the
// cached phase without reconciling each row.
func (s *WorkflowServiceImpl) ListWorkflows(ctx context.Context, filters primary.WorkflowFilters) ([]*primary.Workflow, error) {
	records, err := s.workflowRepo.List(ctx, secondary.WorkflowFilters{
		Status: filters.Status,
		Phase:  filters.Phase,
		Limit:  filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	workflows := make([]*primary.Workflow, 0, len(records))
	for _, record := range records {
		wf, err := toWorkflow(record, false)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// AdvanceWorkflow reconciles and evaluates advancement eligibility.
//
// The phase pointer only ever moves through artifact evidence, so a
// successful advance is one of two things: the reconcile itself moved the
// phase forward (the artifact landed since the last look), or the workflow is
// in pre and the specify phase is open to start. Anything else is blocked,
// with the missing artifact named.
func (s *WorkflowServiceImpl) AdvanceWorkflow(ctx context.Context, workflowID string) (*primary.AdvanceResponse, error) {
	record, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	result, err := s.reconciler.Reconcile(ctx, record)
	if err != nil {
		return nil, err
	}
	if err := s.applyStatusFlips(ctx, record, result); err != nil {
		return nil, err
	}

	if result.Changed && !result.Regressed {
		wf, err := toWorkflow(record, false)
		if err != nil {
			return nil, err
		}
		next, _ := phase.EntryPhase(result.Derived)
		return &primary.AdvanceResponse{Workflow: wf, NextPhase: next}, nil
	}

	check := phase.CheckAdvance(result.Derived, result.Evidence)
	if !check.Allowed {
		return nil, &primary.AdvancementBlockedError{
			WorkflowID:      workflowID,
			CurrentPhase:    result.Derived,
			MissingArtifact: check.MissingArtifact,
			Reason:          check.Reason,
		}
	}
	wf, err := toWorkflow(record, result.Regressed)
	if err != nil {
		return nil, err
	}
	next, _ := phase.EntryPhase(result.Derived)
	return &primary.AdvanceResponse{Workflow: wf, NextPhase: next}, nil
}

// UpdateWorkflow updates title, description and/or selected agents.
func (s *WorkflowServiceImpl) UpdateWorkflow(ctx context.Context, req primary.UpdateWorkflowRequest) error {
	record, err := s.workflowRepo.GetByID(ctx, req.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to get workflow: %w", err)
	}
	result, err := s.reconciler.Reconcile(ctx, record)
	if err != nil {
		return err
	}
	if err := s.applyStatusFlips(ctx, record, result); err != nil {
		return err
	}

	if req.Title != "" {
		if g := workflow.ValidateTitle(req.Title); !g.Allowed {
			return &primary.ValidationError{Field: "title", Message: g.Reason}
		}
		record.Title = req.Title
	}
	if req.Description != "" {
		if g := workflow.ValidateDescription(req.Description); !g.Allowed {
			return &primary.ValidationError{Field: "description", Message: g.Reason}
		}
		record.Description = req.Description
	}
	if req.SelectedAgents != nil {
		if g := workflow.CanMutateAgents(req.WorkflowID, record.Status, result.Derived); !g.Allowed {
			return g.Error()
		}
		if g := workflow.ValidateSelectedAgents(req.SelectedAgents); !g.Allowed {
			return &primary.ValidationError{Field: "agents", Message: g.Reason}
		}
		agents, err := encodeAgents(req.SelectedAgents)
		if err != nil {
			return fmt.Errorf("failed to encode selected agents: %w", err)
		}
		record.SelectedAgents = agents
	}

	if err := s.workflowRepo.Update(ctx, record); err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	return nil
}

// PauseWorkflow pauses an active workflow. In-flight sessions keep running.
func (s *WorkflowServiceImpl) PauseWorkflow(ctx context.Context, workflowID string) error {
	record, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to get workflow: %w", err)
	}
	if g := workflow.CanPause(workflowID, record.Status); !g.Allowed {
		return g.Error()
	}
	if err := s.workflowRepo.UpdateStatus(ctx, workflowID, workflow.StatusPaused); err != nil {
		return fmt.Errorf("failed to pause workflow: %w", err)
	}
	return nil
}

// ResumeWorkflow resumes a paused workflow.
func (s *WorkflowServiceImpl) ResumeWorkflow(ctx context.Context, workflowID string) error {
	record, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to get workflow: %w", err)
	}
	if g := workflow.CanResume(workflowID, record.Status); !g.Allowed {
		return g.Error()
	}
	if err := s.workflowRepo.UpdateStatus(ctx, workflowID, workflow.StatusActive); err != nil {
		return fmt.Errorf("failed to resume workflow: %w", err)
	}
	return nil
}

// DeleteWorkflow removes the workflow record and its sessions. The workspace
// and its artifacts are left in place for the operator to reclaim.
func (s *WorkflowServiceImpl) DeleteWorkflow(ctx context.Context, workflowID string) error {
	if err := s.workflowRepo.Delete(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	return nil
}

// applyStatusFlips moves the workflow status across the terminal boundary
// after a reconcile. Reaching the terminal phase completes an active
// workflow; regressing out of it reopens a completed one. The reconciler
// itself never touches status, the service owns this policy.
func (s *WorkflowServiceImpl) applyStatusFlips(ctx context.Context, record *secondary.WorkflowRecord, result *ReconcileResult) error {
	switch {
	case phase.IsTerminal(result.Derived) && record.Status == workflow.StatusActive:
		if err := s.workflowRepo.UpdateStatus(ctx, record.ID, workflow.StatusCompleted); err != nil {
			return fmt.Errorf("failed to complete workflow: %w", err)
		}
		record.Status = workflow.StatusCompleted
	case !phase.IsTerminal(result.Derived) && record.Status == workflow.StatusCompleted:
		if err := s.workflowRepo.UpdateStatus(ctx, record.ID, workflow.StatusActive); err != nil {
			return fmt.Errorf("failed to reopen workflow: %w", err)
		}
		record.Status = workflow.StatusActive
	}
	return nil
}

// toWorkflow maps a persistence record to the port boundary type.
func toWorkflow(record *secondary.WorkflowRecord, regressed bool) (*primary.Workflow, error) {
	agents, err := decodeAgents(record.SelectedAgents)
	if err != nil {
		return nil, fmt.Errorf("failed to decode selected agents for %s: %w", record.ID, err)
	}
	return &primary.Workflow{
		ID:          record.ID,
		Title:       record.Title,
		Description: record.Description,
		TargetRepository: primary.TargetRepository{
			URL:       record.RepoURL,
			Branch:    record.RepoBranch,
			ClonePath: record.RepoClonePath,
		},
		WorkspacePath:  record.WorkspacePath,
		SelectedAgents: agents,
		CurrentPhase:   phase.Phase(record.CurrentPhase),
		Status:         record.Status,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
		PhaseRegressed: regressed,
	}, nil
}

func encodeAgents(agents []string) (string, error) {
	raw, err := json.Marshal(agents)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeAgents(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var agents []string
	if err := json.Unmarshal([]byte(raw), &agents); err != nil {
		return nil, errors.New("selected agents column is not a JSON array")
	}
	return agents, nil
}
