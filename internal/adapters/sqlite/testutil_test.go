// Package sqlite_test contains integration tests for SQLite repositories.
//
// All test setup uses db.GetSchemaSQL() so tests run against the
// authoritative schema - do not hardcode CREATE TABLE statements here.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/rfe/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedWorkflow inserts a test workflow and returns its ID.
func seedWorkflow(t *testing.T, db *sql.DB, id string) string {
	t.Helper()
	if id == "" {
		id = "RFE-001"
	}
	_, err := db.Exec(
		"INSERT INTO workflows (id, title, description, repo_url, repo_branch, workspace_path, selected_agents, current_phase, status) VALUES (?, 'Test RFE', 'A test enhancement', 'https://github.com/org/repo.git', 'main', '/tmp/ws', '[\"ENGINEERING_MANAGER\"]', 'pre', 'active')",
		id,
	)
	if err != nil {
		t.Fatalf("failed to seed workflow: %v", err)
	}
	return id
}

// seedSession inserts a test session and returns its ID.
func seedSession(t *testing.T, db *sql.DB, id, workflowID, phase, persona, status string) string {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO agent_sessions (id, workflow_id, phase, agent_persona, status, prompt) VALUES (?, ?, ?, ?, ?, '/specify test')",
		id, workflowID, phase, persona, status,
	)
	if err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return id
}
