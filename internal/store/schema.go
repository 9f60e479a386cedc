package store

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	status TEXT NOT NULL,
	instruction TEXT NOT NULL,
	dod_command TEXT NOT NULL,
	workspace_path TEXT NOT NULL,
	max_iters INTEGER NOT NULL,
	timeout_sec INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(id),
	iter INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT,
	result TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_task ON runs(task_id, iter);

CREATE TABLE IF NOT EXISTS tool_calls (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(id),
	tool_name TEXT NOT NULL,
	input_json TEXT NOT NULL,
	output_json TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT NOT NULL,
	ok INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tool_calls_run ON tool_calls(run_id);

CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(id),
	type TEXT NOT NULL,
	path TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`
