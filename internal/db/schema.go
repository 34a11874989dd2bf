package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_id TEXT PRIMARY KEY,
	taken_at TEXT NOT NULL,
	track_count INTEGER NOT NULL DEFAULT 0,
	artist_count INTEGER NOT NULL DEFAULT 0,
	now_playing INTEGER NOT NULL DEFAULT 0,
	total_listening_ms INTEGER NOT NULL DEFAULT 0,
	payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
`
