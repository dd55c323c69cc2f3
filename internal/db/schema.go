package db

// SchemaSQL is the complete schema for fresh rfe installs.
//
// This is the single source of truth for the database schema. All repository
// tests build their in-memory databases from GetSchemaSQL() so repository
// code and schema cannot drift without a test failing with "no such column".
const SchemaSQL = `
-- RFE workflows
CREATE TABLE IF NOT EXISTS workflows (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	repo_url TEXT NOT NULL,
	repo_branch TEXT NOT NULL DEFAULT 'main',
	repo_clone_path TEXT,
	workspace_path TEXT NOT NULL,
	selected_agents TEXT NOT NULL,
	current_phase TEXT NOT NULL CHECK(current_phase IN ('pre', 'specify', 'plan', 'tasks', 'completed')) DEFAULT 'pre',
	status TEXT NOT NULL CHECK(status IN ('active', 'paused', 'completed', 'failed')) DEFAULT 'active',
	version INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Agent sessions (owned by workflows, removed with them)
CREATE TABLE IF NOT EXISTS agent_sessions (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	phase TEXT NOT NULL CHECK(phase IN ('specify', 'plan', 'tasks')),
	agent_persona TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('pending', 'running', 'completed', 'failed', 'stopped')) DEFAULT 'pending',
	prompt TEXT NOT NULL,
	runner_handle TEXT,
	produced_artifact_path TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	started_at DATETIME,
	completed_at DATETIME,
	FOREIGN KEY (workflow_id) REFERENCES workflows(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_workflow ON agent_sessions(workflow_id);
CREATE INDEX IF NOT EXISTS idx_sessions_workflow_phase ON agent_sessions(workflow_id, phase);
CREATE INDEX IF NOT EXISTS idx_workflows_status ON workflows(status);
`

// GetSchemaSQL returns the authoritative schema SQL for tests and tools.
func GetSchemaSQL() string {
	return SchemaSQL
}
