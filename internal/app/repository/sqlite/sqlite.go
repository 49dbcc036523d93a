package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"voxledger/internal/app/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	minutes_processed TEXT NOT NULL DEFAULT '0',
	total_cost TEXT NOT NULL DEFAULT '0',
	monthly_quota_minutes TEXT NOT NULL DEFAULT '100',
	quota_reset_date TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS audio_jobs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	original_filename TEXT NOT NULL,
	storage_key TEXT NOT NULL DEFAULT '',
	file_size INTEGER NOT NULL,
	duration_seconds TEXT NOT NULL DEFAULT '0',
	language TEXT NOT NULL DEFAULT 'auto',
	model_tier TEXT NOT NULL DEFAULT 'base',
	status TEXT NOT NULL DEFAULT 'pending',
	progress INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	cost TEXT NOT NULL DEFAULT '0',
	minutes_processed TEXT NOT NULL DEFAULT '0',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_audio_jobs_user ON audio_jobs(user_id, created_at);

CREATE TABLE IF NOT EXISTS transcripts (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL UNIQUE REFERENCES audio_jobs(id),
	text TEXT NOT NULL DEFAULT '',
	words TEXT NOT NULL DEFAULT '[]',
	detected_language TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	word_count INTEGER NOT NULL DEFAULT 0,
	character_count INTEGER NOT NULL DEFAULT 0,
	artifact_keys TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS usage_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users(id),
	job_id TEXT NOT NULL REFERENCES audio_jobs(id),
	minutes_processed TEXT NOT NULL,
	cost TEXT NOT NULL,
	model_tier TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_entries_user ON usage_entries(user_id, created_at);
`

// NewStore opens (or creates) the sqlite database at dbFilePath and
// bootstraps the schema.
func NewStore(dbFilePath string) (*repository.SQLStore, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?cache=shared&mode=rwc", dbFilePath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer connection sidesteps SQLITE_BUSY under the worker pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return repository.NewSQLStore(db, "sqlite3"), nil
}
