package db

// migration is one schema step. Statements are portable between Postgres and
// SQLite, so timestamps are stored as unix seconds.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS chat_sessions (
				id                   TEXT PRIMARY KEY,
				slots                TEXT NOT NULL DEFAULT '{}',
				confirmation_pending BOOLEAN NOT NULL DEFAULT FALSE,
				created_at           BIGINT NOT NULL,
				updated_at           BIGINT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS analytics_events (
				id          TEXT PRIMARY KEY,
				event_name  TEXT NOT NULL,
				event_time  BIGINT NOT NULL,
				session_id  TEXT,
				platform    TEXT NOT NULL DEFAULT 'unknown',
				app_version TEXT NOT NULL DEFAULT '',
				properties  TEXT NOT NULL DEFAULT '{}'
			)`,
			`CREATE INDEX IF NOT EXISTS idx_analytics_events_session ON analytics_events(session_id)`,
		},
	},
}
