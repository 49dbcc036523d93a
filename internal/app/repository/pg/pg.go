package pg

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"voxledger/internal/app/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	minutes_processed NUMERIC(10,2) NOT NULL DEFAULT 0,
	total_cost NUMERIC(10,4) NOT NULL DEFAULT 0,
	monthly_quota_minutes NUMERIC(10,2) NOT NULL DEFAULT 100,
	quota_reset_date TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audio_jobs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	original_filename TEXT NOT NULL,
	storage_key TEXT NOT NULL DEFAULT '',
	file_size BIGINT NOT NULL,
	duration_seconds NUMERIC(20,2) NOT NULL DEFAULT 0,
	language TEXT NOT NULL DEFAULT 'auto',
	model_tier TEXT NOT NULL DEFAULT 'base',
	status TEXT NOT NULL DEFAULT 'pending',
	progress INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	cost NUMERIC(10,4) NOT NULL DEFAULT 0,
	minutes_processed NUMERIC(10,2) NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_audio_jobs_user ON audio_jobs(user_id, created_at);

CREATE TABLE IF NOT EXISTS transcripts (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL UNIQUE REFERENCES audio_jobs(id),
	text TEXT NOT NULL DEFAULT '',
	words JSONB NOT NULL DEFAULT '[]',
	detected_language TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	word_count INTEGER NOT NULL DEFAULT 0,
	character_count INTEGER NOT NULL DEFAULT 0,
	artifact_keys JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS usage_entries (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	job_id TEXT NOT NULL REFERENCES audio_jobs(id),
	minutes_processed NUMERIC(10,2) NOT NULL,
	cost NUMERIC(10,4) NOT NULL,
	model_tier TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_entries_user ON usage_entries(user_id, created_at);
`

// NewStore connects to postgres and bootstraps the schema.
func NewStore(connectionString string) (*repository.SQLStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return repository.NewSQLStore(db, "postgres"), nil
}
