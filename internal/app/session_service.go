package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/example/rfe/internal/core/phase"
	"github.com/example/rfe/internal/core/workflow"
	"github.com/example/rfe/internal/personas"
	"github.com/example/rfe/internal/ports/primary"
	"github.com/example/rfe/internal/ports/secondary"
)

// SessionServiceImpl implements the primary.SessionService interface.
type SessionServiceImpl struct {
	sessionRepo  secondary.SessionRepository
	workflowRepo secondary.WorkflowRepository
	reconciler   *Reconciler
	runner       secondary.AgentRunner
	registry     *personas.Registry
	events       secondary.EventLogger
}

var _ primary.SessionService = (*SessionServiceImpl)(nil)

// NewSessionService creates a SessionServiceImpl with its dependencies.
func NewSessionService(
	sessionRepo secondary.SessionRepository,
	workflowRepo secondary.WorkflowRepository,
	reconciler *Reconciler,
	runner secondary.AgentRunner,
	registry *personas.Registry,
	events secondary.EventLogger,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		sessionRepo:  sessionRepo,
		workflowRepo: workflowRepo,
		reconciler:   reconciler,
		runner:       runner,
		registry:     registry,
		events:       events,
	}
}

// StartPhaseSessions fans out one agent session per persona for the phase.
//
// Launches run concurrently; each persona succeeds or fails on its own. On
// partial failure the launched sessions are returned alongside the joined
// error so callers can report both.
func (s *SessionServiceImpl) StartPhaseSessions(ctx context.Context, req primary.StartPhaseSessionsRequest) (*primary.StartPhaseSessionsResponse, error) {
	record, err := s.workflowRepo.GetByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	result, err := s.reconciler.Reconcile(ctx, record)
	if err != nil {
		return nil, err
	}

	if !phase.IsGated(req.Phase) {
		return nil, &primary.ValidationError{
			Field:   "phase",
			Message: fmt.Sprintf("%q is not a launchable phase", req.Phase),
		}
	}

	requested := req.Personas
	if len(requested) == 0 {
		requested, err = decodeAgents(record.SelectedAgents)
		if err != nil {
			return nil, fmt.Errorf("failed to decode selected agents for %s: %w", record.ID, err)
		}
	}
	if err := s.registry.Validate(requested); err != nil {
		return nil, &primary.ValidationError{Field: "personas", Message: err.Error()}
	}

	artifactExists := result.Evidence[req.Phase]
	guard := workflow.CanLaunchSessions(workflow.SessionLaunchContext{
		WorkflowID:     req.WorkflowID,
		Status:         record.Status,
		DerivedPhase:   result.Derived,
		RequestedPhase: req.Phase,
		ArtifactExists: artifactExists,
		Regenerate:     req.Regenerate,
	})
	if !guard.Allowed {
		return nil, &primary.PhaseNotReadyError{
			WorkflowID:     req.WorkflowID,
			RequestedPhase: req.Phase,
			CurrentPhase:   result.Derived,
			Reason:         guard.Reason,
		}
	}

	def, _ := phase.Lookup(req.Phase)

	type launch struct {
		persona personas.Persona
		handle  string
		err     error
	}
	launches := make([]launch, len(requested))
	var wg sync.WaitGroup
	for i, id := range requested {
		p, _ := s.registry.Get(id)
		launches[i].persona = p
		wg.Add(1)
		go func(i int, p personas.Persona) {
			defer wg.Done()
			handle, err := s.runner.Launch(ctx, secondary.LaunchSpec{
				WorkflowID:    record.ID,
				Phase:         string(req.Phase),
				Persona:       p.ID,
				Prompt:        p.Prompt(req.Phase, record.Description),
				WorkspacePath: record.WorkspacePath,
			})
			launches[i].handle = handle
			launches[i].err = err
		}(i, p)
	}
	wg.Wait()

	var sessions []*primary.AgentSession
	var launchErrs []error
	for _, l := range launches {
		if l.err != nil {
			launchErrs = append(launchErrs, fmt.Errorf("failed to launch session for %s: %w", l.persona.ID, l.err))
			continue
		}
		sess := &secondary.SessionRecord{
			ID:                   uuid.NewString(),
			WorkflowID:           record.ID,
			Phase:                string(req.Phase),
			AgentPersona:         l.persona.ID,
			Status:               secondary.SessionPending,
			Prompt:               l.persona.Prompt(req.Phase, record.Description),
			RunnerHandle:         l.handle,
			ProducedArtifactPath: def.ArtifactPath,
		}
		if err := s.sessionRepo.Create(ctx, sess); err != nil {
			launchErrs = append(launchErrs, fmt.Errorf("failed to persist session for %s: %w", l.persona.ID, err))
			continue
		}
		s.events.SessionEvent(record.ID, sess.ID, sess.AgentPersona, sess.Status)
		sessions = append(sessions, toSession(sess))
	}

	resp := &primary.StartPhaseSessionsResponse{
		Sessions: sessions,
		Rerun:    artifactExists && req.Regenerate,
	}
	if len(launchErrs) > 0 {
		if len(sessions) == 0 {
			return nil, errors.Join(launchErrs...)
		}
		return resp, errors.Join(launchErrs...)
	}
	return resp, nil
}

// ListSessions lists a workflow's sessions in creation order.
func (s *SessionServiceImpl) ListSessions(ctx context.Context, workflowID string, phaseFilter phase.Phase) ([]*primary.AgentSession, error) {
	exists, err := s.sessionRepo.WorkflowExists(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to check workflow: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, secondary.ErrNotFound)
	}
	records, err := s.sessionRepo.ListByWorkflow(ctx, workflowID, string(phaseFilter))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := make([]*primary.AgentSession, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, toSession(record))
	}
	return sessions, nil
}

// SyncSessions polls the runner for every in-flight session and persists the
// observed transitions. A runner error for one session does not abort the
// sweep over the rest.
func (s *SessionServiceImpl) SyncSessions(ctx context.Context, workflowID string) (*primary.SyncSessionsResponse, error) {
	records, err := s.sessionRepo.ListInFlight(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list in-flight sessions: %w", err)
	}

	resp := &primary.SyncSessionsResponse{Checked: len(records)}
	var pollErrs []error
	for _, record := range records {
		observed, err := s.runner.Status(ctx, record.RunnerHandle)
		if err != nil {
			pollErrs = append(pollErrs, fmt.Errorf("failed to poll session %s: %w", record.ID, err))
			continue
		}
		if observed == record.Status {
			continue
		}
		setStarted := observed == secondary.SessionRunning && record.StartedAt == ""
		setCompleted := sessionFinished(observed)
		if setCompleted && record.StartedAt == "" {
			setStarted = true
		}
		if err := s.sessionRepo.UpdateStatus(ctx, record.ID, observed, setStarted, setCompleted); err != nil {
			pollErrs = append(pollErrs, fmt.Errorf("failed to update session %s: %w", record.ID, err))
			continue
		}
		s.events.SessionEvent(workflowID, record.ID, record.AgentPersona, observed)
		resp.Transitions = append(resp.Transitions, primary.SessionTransition{
			SessionID: record.ID,
			Persona:   record.AgentPersona,
			From:      record.Status,
			To:        observed,
		})
	}
	if len(pollErrs) > 0 {
		return resp, errors.Join(pollErrs...)
	}
	return resp, nil
}

// StopSession asks the runner to terminate one session.
func (s *SessionServiceImpl) StopSession(ctx context.Context, sessionID string) error {
	record, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if sessionFinished(record.Status) {
		return nil
	}
	if err := s.runner.Stop(ctx, record.RunnerHandle); err != nil {
		return fmt.Errorf("failed to stop session %s: %w", sessionID, err)
	}
	setStarted := record.StartedAt == ""
	if err := s.sessionRepo.UpdateStatus(ctx, sessionID, secondary.SessionStopped, setStarted, true); err != nil {
		return fmt.Errorf("failed to update session %s: %w", sessionID, err)
	}
	s.events.SessionEvent(record.WorkflowID, record.ID, record.AgentPersona, secondary.SessionStopped)
	return nil
}

// sessionFinished reports whether status is a terminal session status.
func sessionFinished(status string) bool {
	switch status {
	case secondary.SessionCompleted, secondary.SessionFailed, secondary.SessionStopped:
		return true
	}
	return false
}

// toSession maps a persistence record to the port boundary type.
func toSession(record *secondary.SessionRecord) *primary.AgentSession {
	return &primary.AgentSession{
		ID:                   record.ID,
		WorkflowID:           record.WorkflowID,
		Phase:                phase.Phase(record.Phase),
		AgentPersona:         record.AgentPersona,
		Status:               record.Status,
		Prompt:               record.Prompt,
		ProducedArtifactPath: record.ProducedArtifactPath,
		CreatedAt:            record.CreatedAt,
		StartedAt:            record.StartedAt,
		CompletedAt:          record.CompletedAt,
	}
}
