package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/example/rfe/internal/core/phase"
	"github.com/example/rfe/internal/core/workflow"
	"github.com/example/rfe/internal/personas"
	"github.com/example/rfe/internal/ports/secondary"
)

// mockWorkflowRepo is an in-memory WorkflowRepository for service tests.
type mockWorkflowRepo struct {
	workflows map[string]*secondary.WorkflowRecord
	// casRejections makes the next N CompareAndSetPhase calls fail with
	// ErrVersionConflict regardless of version, to exercise the retry loop.
	casRejections int
	casCalls      int
	statusUpdates []string
}

func newMockWorkflowRepo() *mockWorkflowRepo {
	return &mockWorkflowRepo{workflows: make(map[string]*secondary.WorkflowRecord)}
}

func (m *mockWorkflowRepo) Create(_ context.Context, record *secondary.WorkflowRecord) error {
	if _, exists := m.workflows[record.ID]; exists {
		return fmt.Errorf("workflow %s already exists", record.ID)
	}
	clone := *record
	if clone.CreatedAt == "" {
		clone.CreatedAt = "2026-01-01 00:00:00"
		clone.UpdatedAt = clone.CreatedAt
	}
	m.workflows[record.ID] = &clone
	return nil
}

func (m *mockWorkflowRepo) GetByID(_ context.Context, id string) (*secondary.WorkflowRecord, error) {
	record, ok := m.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", id, secondary.ErrNotFound)
	}
	clone := *record
	return &clone, nil
}

func (m *mockWorkflowRepo) List(_ context.Context, filters secondary.WorkflowFilters) ([]*secondary.WorkflowRecord, error) {
	var records []*secondary.WorkflowRecord
	for _, record := range m.workflows {
		if filters.Status != "" && record.Status != filters.Status {
			continue
		}
		if filters.Phase != "" && record.CurrentPhase != filters.Phase {
			continue
		}
		clone := *record
		records = append(records, &clone)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	if filters.Limit > 0 && len(records) > filters.Limit {
		records = records[:filters.Limit]
	}
	return records, nil
}

func (m *mockWorkflowRepo) Update(_ context.Context, record *secondary.WorkflowRecord) error {
	stored, ok := m.workflows[record.ID]
	if !ok {
		return fmt.Errorf("workflow %s: %w", record.ID, secondary.ErrNotFound)
	}
	stored.Title = record.Title
	stored.Description = record.Description
	stored.SelectedAgents = record.SelectedAgents
	return nil
}

func (m *mockWorkflowRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.workflows[id]; !ok {
		return fmt.Errorf("workflow %s: %w", id, secondary.ErrNotFound)
	}
	delete(m.workflows, id)
	return nil
}

func (m *mockWorkflowRepo) GetNextID(_ context.Context) (string, error) {
	maxID := 0
	for id := range m.workflows {
		var n int
		if _, err := fmt.Sscanf(id, "RFE-%d", &n); err == nil && n > maxID {
			maxID = n
		}
	}
	return workflow.GenerateWorkflowID(maxID), nil
}

func (m *mockWorkflowRepo) CompareAndSetPhase(_ context.Context, id, derivedPhase string, expectedVersion int) error {
	m.casCalls++
	record, ok := m.workflows[id]
	if !ok {
		return fmt.Errorf("workflow %s: %w", id, secondary.ErrNotFound)
	}
	if m.casRejections > 0 {
		m.casRejections--
		return secondary.ErrVersionConflict
	}
	if record.Version != expectedVersion {
		return secondary.ErrVersionConflict
	}
	record.CurrentPhase = derivedPhase
	record.Version++
	return nil
}

func (m *mockWorkflowRepo) UpdateStatus(_ context.Context, id, status string) error {
	record, ok := m.workflows[id]
	if !ok {
		return fmt.Errorf("workflow %s: %w", id, secondary.ErrNotFound)
	}
	record.Status = status
	m.statusUpdates = append(m.statusUpdates, id+":"+status)
	return nil
}

// mockSessionRepo is an in-memory SessionRepository for service tests.
type mockSessionRepo struct {
	sessions     []*secondary.SessionRecord
	workflowRepo *mockWorkflowRepo
}

func newMockSessionRepo(wr *mockWorkflowRepo) *mockSessionRepo {
	return &mockSessionRepo{workflowRepo: wr}
}

func (m *mockSessionRepo) Create(_ context.Context, session *secondary.SessionRecord) error {
	clone := *session
	if clone.CreatedAt == "" {
		clone.CreatedAt = fmt.Sprintf("2026-01-01 00:00:%02d", len(m.sessions))
	}
	m.sessions = append(m.sessions, &clone)
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*secondary.SessionRecord, error) {
	for _, session := range m.sessions {
		if session.ID == id {
			clone := *session
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, secondary.ErrNotFound)
}

func (m *mockSessionRepo) ListByWorkflow(_ context.Context, workflowID, phaseFilter string) ([]*secondary.SessionRecord, error) {
	var records []*secondary.SessionRecord
	for _, session := range m.sessions {
		if session.WorkflowID != workflowID {
			continue
		}
		if phaseFilter != "" && session.Phase != phaseFilter {
			continue
		}
		clone := *session
		records = append(records, &clone)
	}
	return records, nil
}

func (m *mockSessionRepo) ListInFlight(_ context.Context, workflowID string) ([]*secondary.SessionRecord, error) {
	var records []*secondary.SessionRecord
	for _, session := range m.sessions {
		if session.WorkflowID != workflowID {
			continue
		}
		if session.Status != secondary.SessionPending && session.Status != secondary.SessionRunning {
			continue
		}
		clone := *session
		records = append(records, &clone)
	}
	return records, nil
}

func (m *mockSessionRepo) UpdateStatus(_ context.Context, id, status string, setStarted, setCompleted bool) error {
	for _, session := range m.sessions {
		if session.ID != id {
			continue
		}
		session.Status = status
		if setStarted {
			session.StartedAt = "2026-01-01 00:01:00"
		}
		if setCompleted {
			session.CompletedAt = "2026-01-01 00:02:00"
		}
		return nil
	}
	return fmt.Errorf("session %s: %w", id, secondary.ErrNotFound)
}

func (m *mockSessionRepo) WorkflowExists(_ context.Context, workflowID string) (bool, error) {
	_, ok := m.workflowRepo.workflows[workflowID]
	return ok, nil
}

// mockInspector is a WorkspaceInspector backed by a path set.
type mockInspector struct {
	existing    map[string]bool
	unavailable bool
}

func newMockInspector() *mockInspector {
	return &mockInspector{existing: make(map[string]bool)}
}

func (m *mockInspector) put(workspacePath, relPath string) {
	m.existing[filepath.Join(workspacePath, relPath)] = true
}

func (m *mockInspector) remove(workspacePath, relPath string) {
	delete(m.existing, filepath.Join(workspacePath, relPath))
}

func (m *mockInspector) ListEntries(_ context.Context, workspacePath, subpath string) ([]secondary.WorkspaceEntry, error) {
	if m.unavailable {
		return nil, secondary.ErrWorkspaceUnavailable
	}
	prefix := filepath.Join(workspacePath, subpath) + "/"
	var entries []secondary.WorkspaceEntry
	for path := range m.existing {
		if strings.HasPrefix(path, prefix) {
			entries = append(entries, secondary.WorkspaceEntry{Name: strings.TrimPrefix(path, prefix)})
		}
	}
	return entries, nil
}

func (m *mockInspector) ReadFile(_ context.Context, workspacePath, relPath string) ([]byte, error) {
	if m.unavailable {
		return nil, secondary.ErrWorkspaceUnavailable
	}
	if !m.existing[filepath.Join(workspacePath, relPath)] {
		return nil, secondary.ErrFileNotFound
	}
	return []byte("content"), nil
}

func (m *mockInspector) Exists(_ context.Context, workspacePath, relPath string) (bool, error) {
	if m.unavailable {
		return false, secondary.ErrWorkspaceUnavailable
	}
	return m.existing[filepath.Join(workspacePath, relPath)], nil
}

// mockRunner is an AgentRunner recording launches. Launches run concurrently
// so the mock is mutex-guarded.
type mockRunner struct {
	mu       sync.Mutex
	launched []secondary.LaunchSpec
	statuses map[string]string
	failFor  map[string]bool
	stopped  []string
}

func newMockRunner() *mockRunner {
	return &mockRunner{statuses: make(map[string]string), failFor: make(map[string]bool)}
}

func (m *mockRunner) Launch(_ context.Context, spec secondary.LaunchSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[spec.Persona] {
		return "", secondary.ErrAgentUnavailable
	}
	m.launched = append(m.launched, spec)
	handle := "h-" + spec.Persona
	m.statuses[handle] = secondary.SessionPending
	return handle, nil
}

func (m *mockRunner) Status(_ context.Context, handle string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[handle]
	if !ok {
		return "", secondary.ErrAgentUnavailable
	}
	return status, nil
}

func (m *mockRunner) Stop(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = append(m.stopped, handle)
	m.statuses[handle] = secondary.SessionStopped
	return nil
}

// recordingEvents captures lifecycle events emitted by services.
type recordingEvents struct {
	transitions []string
	sessions    []string
}

func (e *recordingEvents) PhaseTransition(workflowID string, from, to phase.Phase, regressed bool) {
	entry := fmt.Sprintf("%s:%s->%s", workflowID, from, to)
	if regressed {
		entry += ":regressed"
	}
	e.transitions = append(e.transitions, entry)
}

func (e *recordingEvents) SessionEvent(workflowID, sessionID, persona, status string) {
	e.sessions = append(e.sessions, fmt.Sprintf("%s:%s:%s", workflowID, persona, status))
}

// env bundles the mocks and services used across the app tests.
type env struct {
	workflowRepo *mockWorkflowRepo
	sessionRepo  *mockSessionRepo
	inspector    *mockInspector
	runner       *mockRunner
	events       *recordingEvents
	reconciler   *Reconciler
	workflows    *WorkflowServiceImpl
	sessions     *SessionServiceImpl
}

func newEnv(t *testing.T) *env {
	t.Helper()
	registry, err := personas.LoadDefault()
	if err != nil {
		t.Fatalf("failed to load personas: %v", err)
	}
	workflowRepo := newMockWorkflowRepo()
	sessionRepo := newMockSessionRepo(workflowRepo)
	inspector := newMockInspector()
	runner := newMockRunner()
	events := &recordingEvents{}
	reconciler := NewReconciler(workflowRepo, inspector, events)
	return &env{
		workflowRepo: workflowRepo,
		sessionRepo:  sessionRepo,
		inspector:    inspector,
		runner:       runner,
		events:       events,
		reconciler:   reconciler,
		workflows:    NewWorkflowService(workflowRepo, reconciler, events, "/workspaces"),
		sessions:     NewSessionService(sessionRepo, workflowRepo, reconciler, runner, registry, events),
	}
}

// seedWorkflow installs a workflow record directly in the mock store.
func (e *env) seedWorkflow(t *testing.T, id, currentPhase, status string) *secondary.WorkflowRecord {
	t.Helper()
	record := &secondary.WorkflowRecord{
		ID:             id,
		Title:          "Resumable uploads",
		Description:    "Uploads should survive transient failures",
		RepoURL:        "https://example.com/repo.git",
		RepoBranch:     "main",
		WorkspacePath:  filepath.Join("/workspaces", id),
		SelectedAgents: `["STAFF_ENGINEER","PRODUCT_MANAGER"]`,
		CurrentPhase:   currentPhase,
		Status:         status,
	}
	if err := e.workflowRepo.Create(context.Background(), record); err != nil {
		t.Fatalf("failed to seed workflow: %v", err)
	}
	return record
}
