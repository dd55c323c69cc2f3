package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/rfe/internal/ports/secondary"
)

// SessionRepository implements secondary.SessionRepository with SQLite.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = "id, workflow_id, phase, agent_persona, status, prompt, runner_handle, produced_artifact_path, created_at, started_at, completed_at"

// Create persists a new session.
// The record must have ID and Status pre-populated by the service layer.
func (r *SessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	if session.ID == "" {
		return fmt.Errorf("session ID must be pre-populated by service layer")
	}
	if session.Status == "" {
		return fmt.Errorf("session status must be pre-populated by service layer")
	}

	var handle sql.NullString
	if session.RunnerHandle != "" {
		handle = sql.NullString{String: session.RunnerHandle, Valid: true}
	}
	var artifactPath sql.NullString
	if session.ProducedArtifactPath != "" {
		artifactPath = sql.NullString{String: session.ProducedArtifactPath, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO agent_sessions (id, workflow_id, phase, agent_persona, status, prompt, runner_handle, produced_artifact_path) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		session.ID, session.WorkflowID, session.Phase, session.AgentPersona,
		session.Status, session.Prompt, handle, artifactPath,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM agent_sessions WHERE id = ?", id)
	record, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return record, nil
}

// ListByWorkflow retrieves sessions for a workflow in creation order.
func (r *SessionRepository) ListByWorkflow(ctx context.Context, workflowID, phaseFilter string) ([]*secondary.SessionRecord, error) {
	query := "SELECT " + sessionColumns + " FROM agent_sessions WHERE workflow_id = ?"
	args := []any{workflowID}

	if phaseFilter != "" {
		query += " AND phase = ?"
		args = append(args, phaseFilter)
	}

	query += " ORDER BY created_at ASC, id ASC"

	return r.querySessions(ctx, query, args...)
}

// ListInFlight retrieves pending and running sessions for a workflow.
func (r *SessionRepository) ListInFlight(ctx context.Context, workflowID string) ([]*secondary.SessionRecord, error) {
	query := "SELECT " + sessionColumns + " FROM agent_sessions WHERE workflow_id = ? AND status IN ('pending', 'running') ORDER BY created_at ASC, id ASC"
	return r.querySessions(ctx, query, workflowID)
}

// UpdateStatus updates the status and optional timestamps.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id, status string, setStarted, setCompleted bool) error {
	query := "UPDATE agent_sessions SET status = ?"
	args := []any{status}

	if setStarted {
		query += ", started_at = CURRENT_TIMESTAMP"
	}
	if setCompleted {
		query += ", completed_at = CURRENT_TIMESTAMP"
	}

	query += " WHERE id = ?"
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check session update result: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session %s: %w", id, secondary.ErrNotFound)
	}
	return nil
}

// WorkflowExists checks if a workflow exists.
func (r *SessionRepository) WorkflowExists(ctx context.Context, workflowID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workflows WHERE id = ?", workflowID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check workflow existence: %w", err)
	}
	return count > 0, nil
}

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]*secondary.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var records []*secondary.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanSession(s scanner) (*secondary.SessionRecord, error) {
	var (
		handle       sql.NullString
		artifactPath sql.NullString
		createdAt    time.Time
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	record := &secondary.SessionRecord{}
	err := s.Scan(&record.ID, &record.WorkflowID, &record.Phase, &record.AgentPersona,
		&record.Status, &record.Prompt, &handle, &artifactPath,
		&createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	record.RunnerHandle = handle.String
	record.ProducedArtifactPath = artifactPath.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	if startedAt.Valid {
		record.StartedAt = startedAt.Time.Format(time.RFC3339)
	}
	if completedAt.Valid {
		record.CompletedAt = completedAt.Time.Format(time.RFC3339)
	}
	return record, nil
}
