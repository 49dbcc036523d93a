package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/model"
)

// PlaceholderFunc generates parameter placeholders for different SQL dialects
type PlaceholderFunc func(n int) string

// SQLStore implements Store on database/sql and is shared by the sqlite
// and postgres drivers. Monetary and minute columns are written as exact
// decimal strings and all arithmetic on them happens in Go, never in SQL.
type SQLStore struct {
	db           *sql.DB
	driverName   string
	placeholders PlaceholderFunc
}

// NewSQLStore creates a SQLStore for the given driver.
func NewSQLStore(db *sql.DB, driverName string) *SQLStore {
	var placeholders PlaceholderFunc

	switch driverName {
	case "postgres":
		placeholders = func(n int) string { return fmt.Sprintf("$%d", n) }
	default:
		placeholders = func(n int) string { return "?" }
	}

	return &SQLStore{
		db:           db,
		driverName:   driverName,
		placeholders: placeholders,
	}
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) ph(n int) string { return s.placeholders(n) }

// forUpdate appends a row lock clause on dialects that support it. SQLite
// serializes writers on its own.
func (s *SQLStore) forUpdate(query string) string {
	if s.driverName == "postgres" {
		return query + " FOR UPDATE"
	}
	return query
}

// --- users ---

func (s *SQLStore) CreateUser(ctx context.Context, user *model.User) error {
	query := fmt.Sprintf(
		`INSERT INTO users (
			id, username, email, company, phone,
			minutes_processed, total_cost, monthly_quota_minutes,
			quota_reset_date, created_at, updated_at
		) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5),
		s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10), s.ph(11),
	)

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.Company, user.Phone,
		user.MinutesProcessed.String(), user.TotalCost.String(),
		user.MonthlyQuotaMinutes.String(),
		user.QuotaResetDate, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, company, phone,
	minutes_processed, total_cost, monthly_quota_minutes,
	quota_reset_date, created_at, updated_at`

func (s *SQLStore) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var minutes, cost, quota string

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Company, &u.Phone,
		&minutes, &cost, &quota,
		&u.QuotaResetDate, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if u.MinutesProcessed, err = decimal.NewFromString(minutes); err != nil {
		return nil, fmt.Errorf("parse minutes_processed: %w", err)
	}
	if u.TotalCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parse total_cost: %w", err)
	}
	if u.MonthlyQuotaMinutes, err = decimal.NewFromString(quota); err != nil {
		return nil, fmt.Errorf("parse monthly_quota_minutes: %w", err)
	}
	return &u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	query := fmt.Sprintf("SELECT "+userColumns+" FROM users WHERE id = %s", s.ph(1))
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLStore) ApplyQuotaReset(ctx context.Context, userID string, periodStart time.Time) (bool, error) {
	// The date guard makes the reset idempotent: once one caller advanced
	// quota_reset_date into the current period, concurrent callers match
	// zero rows.
	query := fmt.Sprintf(
		`UPDATE users
		 SET minutes_processed = %s, quota_reset_date = %s, updated_at = %s
		 WHERE id = %s AND quota_reset_date < %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5),
	)

	res, err := s.db.ExecContext(ctx, query,
		decimal.Zero.String(), periodStart, time.Now().UTC(), userID, periodStart)
	if err != nil {
		return false, fmt.Errorf("apply quota reset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply quota reset: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) IncrementUserTotals(ctx context.Context, userID string, minutes, cost decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.incrementUserTotalsTx(ctx, tx, userID, minutes, cost); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// incrementUserTotalsTx reads, adds exactly in Go, and writes back. Both
// deltas accumulate; total_cost is never overwritten with a single job's
// cost.
func (s *SQLStore) incrementUserTotalsTx(ctx context.Context, tx *sql.Tx, userID string, minutes, cost decimal.Decimal) error {
	query := s.forUpdate(fmt.Sprintf(
		"SELECT minutes_processed, total_cost FROM users WHERE id = %s", s.ph(1)))

	var curMinutes, curCost string
	err := tx.QueryRowContext(ctx, query, userID).Scan(&curMinutes, &curCost)
	if err == sql.ErrNoRows {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("select user totals: %w", err)
	}

	m, err := decimal.NewFromString(curMinutes)
	if err != nil {
		return fmt.Errorf("parse minutes_processed: %w", err)
	}
	c, err := decimal.NewFromString(curCost)
	if err != nil {
		return fmt.Errorf("parse total_cost: %w", err)
	}

	update := fmt.Sprintf(
		"UPDATE users SET minutes_processed = %s, total_cost = %s, updated_at = %s WHERE id = %s",
		s.ph(1), s.ph(2), s.ph(3), s.ph(4),
	)
	_, err = tx.ExecContext(ctx, update,
		m.Add(minutes).String(), c.Add(cost).String(), time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update user totals: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Cascade: usage entries and transcripts hang off the user's jobs.
	jobSub := fmt.Sprintf("SELECT id FROM audio_jobs WHERE user_id = %s", s.ph(1))
	for _, stmt := range []string{
		fmt.Sprintf("DELETE FROM usage_entries WHERE user_id = %s", s.ph(1)),
		fmt.Sprintf("DELETE FROM transcripts WHERE job_id IN (%s)", jobSub),
		fmt.Sprintf("DELETE FROM audio_jobs WHERE user_id = %s", s.ph(1)),
		fmt.Sprintf("DELETE FROM users WHERE id = %s", s.ph(1)),
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete user cascade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- jobs ---

const jobColumns = `id, user_id, original_filename, storage_key, file_size,
	duration_seconds, language, model_tier, status, progress, error_message,
	cost, minutes_processed, created_at, updated_at, completed_at`

func (s *SQLStore) CreateJob(ctx context.Context, j *model.AudioJob) error {
	params := make([]string, 16)
	for i := range params {
		params[i] = s.ph(i + 1)
	}
	query := fmt.Sprintf(`INSERT INTO audio_jobs (`+jobColumns+`)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		params[0], params[1], params[2], params[3], params[4], params[5],
		params[6], params[7], params[8], params[9], params[10], params[11],
		params[12], params[13], params[14], params[15],
	)

	_, err := s.db.ExecContext(ctx, query, s.jobArgs(j)...)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQLStore) jobArgs(j *model.AudioJob) []interface{} {
	var completedAt interface{}
	if j.CompletedAt != nil {
		completedAt = *j.CompletedAt
	}
	return []interface{}{
		j.ID, j.UserID, j.OriginalFilename, j.StorageKey, j.FileSize,
		j.DurationSeconds.String(), j.Language, string(j.ModelTier),
		string(j.Status), j.Progress, j.ErrorMessage,
		j.Cost.String(), j.MinutesProcessed.String(),
		j.CreatedAt, j.UpdatedAt, completedAt,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.AudioJob, error) {
	var j model.AudioJob
	var duration, cost, minutes, tier, status string
	var completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &j.UserID, &j.OriginalFilename, &j.StorageKey, &j.FileSize,
		&duration, &j.Language, &tier, &status, &j.Progress, &j.ErrorMessage,
		&cost, &minutes, &j.CreatedAt, &j.UpdatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	j.ModelTier = model.ModelTier(tier)
	j.Status = model.JobStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	if j.DurationSeconds, err = decimal.NewFromString(duration); err != nil {
		return nil, fmt.Errorf("parse duration_seconds: %w", err)
	}
	if j.Cost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parse cost: %w", err)
	}
	if j.MinutesProcessed, err = decimal.NewFromString(minutes); err != nil {
		return nil, fmt.Errorf("parse minutes_processed: %w", err)
	}
	return &j, nil
}

func (s *SQLStore) GetJob(ctx context.Context, id string) (*model.AudioJob, error) {
	query := fmt.Sprintf("SELECT "+jobColumns+" FROM audio_jobs WHERE id = %s", s.ph(1))
	return scanJob(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLStore) UpdateJob(ctx context.Context, j *model.AudioJob) error {
	query := fmt.Sprintf(
		`UPDATE audio_jobs SET
			storage_key = %s, duration_seconds = %s, status = %s,
			progress = %s, error_message = %s, cost = %s,
			minutes_processed = %s, updated_at = %s, completed_at = %s
		 WHERE id = %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5),
		s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10),
	)

	var completedAt interface{}
	if j.CompletedAt != nil {
		completedAt = *j.CompletedAt
	}
	res, err := s.db.ExecContext(ctx, query,
		j.StorageKey, j.DurationSeconds.String(), string(j.Status),
		j.Progress, j.ErrorMessage, j.Cost.String(),
		j.MinutesProcessed.String(), j.UpdatedAt, completedAt, j.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrJobNotFound
	}
	return nil
}

func (s *SQLStore) ListJobsByUser(ctx context.Context, userID string, limit int) ([]model.AudioJob, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(
		"SELECT "+jobColumns+" FROM audio_jobs WHERE user_id = %s ORDER BY created_at DESC LIMIT %s",
		s.ph(1), s.ph(2),
	)

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.AudioJob, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return jobs, nil
}

func (s *SQLStore) DeleteJob(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		fmt.Sprintf("DELETE FROM usage_entries WHERE job_id = %s", s.ph(1)),
		fmt.Sprintf("DELETE FROM transcripts WHERE job_id = %s", s.ph(1)),
		fmt.Sprintf("DELETE FROM audio_jobs WHERE id = %s", s.ph(1)),
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete job cascade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- transcripts ---

func (s *SQLStore) insertTranscriptTx(ctx context.Context, tx *sql.Tx, t *model.Transcript) error {
	words, err := json.Marshal(t.Words)
	if err != nil {
		return fmt.Errorf("marshal words: %w", err)
	}
	keys, err := json.Marshal(t.ArtifactKeys)
	if err != nil {
		return fmt.Errorf("marshal artifact keys: %w", err)
	}

	params := make([]string, 11)
	for i := range params {
		params[i] = s.ph(i + 1)
	}
	query := fmt.Sprintf(`INSERT INTO transcripts (
			id, job_id, text, words, detected_language, confidence,
			word_count, character_count, artifact_keys, created_at, updated_at
		) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		params[0], params[1], params[2], params[3], params[4], params[5],
		params[6], params[7], params[8], params[9], params[10],
	)

	_, err = tx.ExecContext(ctx, query,
		t.ID, t.JobID, t.Text, string(words), t.DetectedLanguage, t.Confidence,
		t.WordCount, t.CharacterCount, string(keys), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

func (s *SQLStore) GetTranscriptByJob(ctx context.Context, jobID string) (*model.Transcript, error) {
	query := fmt.Sprintf(
		`SELECT id, job_id, text, words, detected_language, confidence,
			word_count, character_count, artifact_keys, created_at, updated_at
		 FROM transcripts WHERE job_id = %s`, s.ph(1))

	var t model.Transcript
	var words, keys string
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&t.ID, &t.JobID, &t.Text, &words, &t.DetectedLanguage, &t.Confidence,
		&t.WordCount, &t.CharacterCount, &keys, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrTranscriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	if err := json.Unmarshal([]byte(words), &t.Words); err != nil {
		return nil, fmt.Errorf("unmarshal words: %w", err)
	}
	if keys != "" && keys != "null" {
		if err := json.Unmarshal([]byte(keys), &t.ArtifactKeys); err != nil {
			return nil, fmt.Errorf("unmarshal artifact keys: %w", err)
		}
	}
	return &t, nil
}

func (s *SQLStore) UpdateArtifactKeys(ctx context.Context, transcriptID string, keys map[string]string) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("marshal artifact keys: %w", err)
	}
	query := fmt.Sprintf(
		"UPDATE transcripts SET artifact_keys = %s, updated_at = %s WHERE id = %s",
		s.ph(1), s.ph(2), s.ph(3))
	_, err = s.db.ExecContext(ctx, query, string(data), time.Now().UTC(), transcriptID)
	if err != nil {
		return fmt.Errorf("update artifact keys: %w", err)
	}
	return nil
}

// --- usage ---

const usageColumns = "id, user_id, job_id, minutes_processed, cost, model_tier, created_at"

func (s *SQLStore) insertUsageTx(ctx context.Context, tx *sql.Tx, e *model.UsageEntry) error {
	query := fmt.Sprintf(
		`INSERT INTO usage_entries (user_id, job_id, minutes_processed, cost, model_tier, created_at)
		 VALUES (%s, %s, %s, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6),
	)
	_, err := tx.ExecContext(ctx, query,
		e.UserID, e.JobID, e.MinutesProcessed.String(), e.Cost.String(),
		string(e.ModelTier), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage entry: %w", err)
	}
	return nil
}

func scanUsage(row rowScanner) (*model.UsageEntry, error) {
	var e model.UsageEntry
	var minutes, cost, tier string

	err := row.Scan(&e.ID, &e.UserID, &e.JobID, &minutes, &cost, &tier, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.ModelTier = model.ModelTier(tier)
	if e.MinutesProcessed, err = decimal.NewFromString(minutes); err != nil {
		return nil, fmt.Errorf("parse minutes_processed: %w", err)
	}
	if e.Cost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parse cost: %w", err)
	}
	return &e, nil
}

func (s *SQLStore) ListUsageByUser(ctx context.Context, userID string) ([]model.UsageEntry, error) {
	query := fmt.Sprintf(
		"SELECT "+usageColumns+" FROM usage_entries WHERE user_id = %s ORDER BY created_at DESC",
		s.ph(1))

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	entries := make([]model.UsageEntry, 0)
	for rows.Next() {
		e, err := scanUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) GetUsageByJob(ctx context.Context, jobID string) (*model.UsageEntry, error) {
	query := fmt.Sprintf("SELECT "+usageColumns+" FROM usage_entries WHERE job_id = %s", s.ph(1))
	e, err := scanUsage(s.db.QueryRowContext(ctx, query, jobID))
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrJobNotFound, "usage for job %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan usage: %w", err)
	}
	return e, nil
}

// --- completion ---

// CompleteJob applies the four completion effects atomically. Any failure
// surfaces as a PersistenceError and leaves no partial state behind.
func (s *SQLStore) CompleteJob(ctx context.Context, j *model.AudioJob, t *model.Transcript, e *model.UsageEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &apperrors.PersistenceError{Op: "begin completion", Cause: err}
	}
	defer tx.Rollback()

	if err := s.updateJobTx(ctx, tx, j); err != nil {
		return &apperrors.PersistenceError{Op: "mark job completed", Cause: err}
	}
	if err := s.insertTranscriptTx(ctx, tx, t); err != nil {
		return &apperrors.PersistenceError{Op: "persist transcript", Cause: err}
	}
	if err := s.incrementUserTotalsTx(ctx, tx, j.UserID, e.MinutesProcessed, e.Cost); err != nil {
		return &apperrors.PersistenceError{Op: "commit quota", Cause: err}
	}
	if err := s.insertUsageTx(ctx, tx, e); err != nil {
		return &apperrors.PersistenceError{Op: "append usage entry", Cause: err}
	}
	if err := tx.Commit(); err != nil {
		return &apperrors.PersistenceError{Op: "commit completion", Cause: err}
	}
	return nil
}

func (s *SQLStore) updateJobTx(ctx context.Context, tx *sql.Tx, j *model.AudioJob) error {
	query := fmt.Sprintf(
		`UPDATE audio_jobs SET
			status = %s, progress = %s, error_message = %s, cost = %s,
			minutes_processed = %s, updated_at = %s, completed_at = %s
		 WHERE id = %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8),
	)

	var completedAt interface{}
	if j.CompletedAt != nil {
		completedAt = *j.CompletedAt
	}
	_, err := tx.ExecContext(ctx, query,
		string(j.Status), j.Progress, j.ErrorMessage, j.Cost.String(),
		j.MinutesProcessed.String(), j.UpdatedAt, completedAt, j.ID,
	)
	return err
}
