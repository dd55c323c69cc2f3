// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	coreworkflow "github.com/example/rfe/internal/core/workflow"
	"github.com/example/rfe/internal/ports/secondary"
)

// WorkflowRepository implements secondary.WorkflowRepository with SQLite.
type WorkflowRepository struct {
	db *sql.DB
}

// NewWorkflowRepository creates a new SQLite workflow repository.
func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

const workflowColumns = "id, title, description, repo_url, repo_branch, repo_clone_path, workspace_path, selected_agents, current_phase, status, version, created_at, updated_at"

// Create persists a new workflow.
// The record must have ID, CurrentPhase and Status pre-populated by the
// service layer.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *secondary.WorkflowRecord) error {
	if workflow.ID == "" {
		return fmt.Errorf("workflow ID must be pre-populated by service layer")
	}
	if workflow.CurrentPhase == "" || workflow.Status == "" {
		return fmt.Errorf("workflow phase and status must be pre-populated by service layer")
	}

	var clonePath sql.NullString
	if workflow.RepoClonePath != "" {
		clonePath = sql.NullString{String: workflow.RepoClonePath, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO workflows (id, title, description, repo_url, repo_branch, repo_clone_path, workspace_path, selected_agents, current_phase, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		workflow.ID, workflow.Title, workflow.Description, workflow.RepoURL, workflow.RepoBranch,
		clonePath, workflow.WorkspacePath, workflow.SelectedAgents, workflow.CurrentPhase, workflow.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	return nil
}

// GetByID retrieves a workflow by its ID.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*secondary.WorkflowRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+workflowColumns+" FROM workflows WHERE id = ?", id)
	record, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return record, nil
}

// List retrieves workflows matching the given filters.
func (r *WorkflowRepository) List(ctx context.Context, filters secondary.WorkflowFilters) ([]*secondary.WorkflowRecord, error) {
	query := "SELECT " + workflowColumns + " FROM workflows"
	args := []any{}
	where := ""

	if filters.Status != "" {
		where = " WHERE status = ?"
		args = append(args, filters.Status)
	}
	if filters.Phase != "" {
		if where == "" {
			where = " WHERE current_phase = ?"
		} else {
			where += " AND current_phase = ?"
		}
		args = append(args, filters.Phase)
	}

	query += where + " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var records []*secondary.WorkflowRecord
	for rows.Next() {
		record, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Update updates title, description and selected agents.
func (r *WorkflowRepository) Update(ctx context.Context, workflow *secondary.WorkflowRecord) error {
	query := "UPDATE workflows SET updated_at = CURRENT_TIMESTAMP"
	args := []any{}

	if workflow.Title != "" {
		query += ", title = ?"
		args = append(args, workflow.Title)
	}
	if workflow.Description != "" {
		query += ", description = ?"
		args = append(args, workflow.Description)
	}
	if workflow.SelectedAgents != "" {
		query += ", selected_agents = ?"
		args = append(args, workflow.SelectedAgents)
	}

	query += " WHERE id = ?"
	args = append(args, workflow.ID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("workflow %s: %w", workflow.ID, secondary.ErrNotFound)
	}
	return nil
}

// Delete removes a workflow. Sessions cascade via foreign key.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("workflow %s: %w", id, secondary.ErrNotFound)
	}
	return nil
}

// GetNextID returns the next available workflow ID.
func (r *WorkflowRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM workflows",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next workflow ID: %w", err)
	}

	return coreworkflow.GenerateWorkflowID(maxID), nil
}

// CompareAndSetPhase updates the cached phase iff the version still matches.
// The WHERE clause on version makes the compare-and-swap a single atomic
// statement; a concurrent reconcile that committed first leaves zero rows
// affected here.
func (r *WorkflowRepository) CompareAndSetPhase(ctx context.Context, id, derivedPhase string, expectedVersion int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE workflows SET current_phase = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND version = ?",
		derivedPhase, id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to set workflow phase: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check phase update result: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a missing workflow from a lost race.
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflows WHERE id = ?", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check workflow existence: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("workflow %s: %w", id, secondary.ErrNotFound)
		}
		return fmt.Errorf("workflow %s phase update: %w", id, secondary.ErrVersionConflict)
	}
	return nil
}

// UpdateStatus updates the workflow status.
func (r *WorkflowRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE workflows SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update workflow status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update result: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("workflow %s: %w", id, secondary.ErrNotFound)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(s scanner) (*secondary.WorkflowRecord, error) {
	var (
		clonePath sql.NullString
		createdAt time.Time
		updatedAt sql.NullTime
	)

	record := &secondary.WorkflowRecord{}
	err := s.Scan(&record.ID, &record.Title, &record.Description, &record.RepoURL, &record.RepoBranch,
		&clonePath, &record.WorkspacePath, &record.SelectedAgents, &record.CurrentPhase,
		&record.Status, &record.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.RepoClonePath = clonePath.String
	record.CreatedAt = createdAt.Format(time.RFC3339)
	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time.Format(time.RFC3339)
	}
	return record, nil
}
