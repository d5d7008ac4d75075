package store

// schemaVersion and schemaChecksum gate the ledger in schema_migrations,
// following the teacher's persistence.Store checksum-per-version convention
// (internal/persistence/store.go), trimmed to this module's single version
// since the run store has no legacy predecessor to reconcile.
const (
	schemaVersion  = 1
	schemaChecksum = "murmur-store-v1"
)

var tableStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS agent_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_type TEXT NOT NULL,
		issue_number INTEGER,
		prompt TEXT NOT NULL,
		workdir TEXT NOT NULL,
		config_json TEXT NOT NULL DEFAULT '{}',
		pid INTEGER,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		exit_code INTEGER,
		duration_seconds INTEGER,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS conversation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_run_id INTEGER NOT NULL REFERENCES agent_runs(id) ON DELETE CASCADE,
		sequence INTEGER NOT NULL,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		message_type TEXT NOT NULL,
		message_json TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(agent_run_id, sequence)
	);`,
	`CREATE TABLE IF NOT EXISTS worktrees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		branch_name TEXT NOT NULL,
		issue_number INTEGER,
		agent_run_id INTEGER REFERENCES agent_runs(id) ON DELETE CASCADE,
		main_repo_path TEXT,
		base_commit TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_agent_runs_issue ON agent_runs(issue_number);`,
	`CREATE INDEX IF NOT EXISTS idx_agent_runs_start_time ON agent_runs(start_time);`,
	`CREATE INDEX IF NOT EXISTS idx_agent_runs_agent_type ON agent_runs(agent_type);`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_logs_run ON conversation_logs(agent_run_id);`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_logs_timestamp ON conversation_logs(timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_logs_message_type ON conversation_logs(message_type);`,
	`CREATE INDEX IF NOT EXISTS idx_worktrees_status ON worktrees(status);`,
	`CREATE INDEX IF NOT EXISTS idx_worktrees_branch ON worktrees(branch_name);`,
}
