package pg

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/model"
	"voxledger/internal/app/repository"
)

// TestStore_Interface verifies SQLStore satisfies the Store interface.
func TestStore_Interface(t *testing.T) {
	var _ repository.Store = (*repository.SQLStore)(nil)
}

func newMockStore(t *testing.T) (*repository.SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewSQLStore(db, "postgres"), mock
}

func TestGetJob_Unit(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "original_filename", "storage_key", "file_size",
		"duration_seconds", "language", "model_tier", "status", "progress",
		"error_message", "cost", "minutes_processed", "created_at",
		"updated_at", "completed_at",
	}).AddRow(
		"job-1", "user-1", "call.mp3", "audio/job-1.mp3", int64(2048),
		"240", "en", "base", "pending", 0,
		"", "0", "0", now, now, nil,
	)

	mock.ExpectQuery(`SELECT (.+) FROM audio_jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(rows)

	j, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", j.ID)
	assert.Equal(t, model.StatusPending, j.Status)
	assert.Equal(t, model.TierBase, j.ModelTier)
	assert.True(t, j.DurationSeconds.Equal(decimal.NewFromInt(240)))
	assert.Nil(t, j.CompletedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJob_NotFound_Unit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM audio_jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyQuotaReset_Unit(t *testing.T) {
	store, mock := newMockStore(t)
	periodStart := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rows    int64
		applied bool
	}{
		{"reset_applied", 1, true},
		{"already_reset_this_period", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec(`UPDATE users\s+SET minutes_processed = \$1, quota_reset_date = \$2, updated_at = \$3\s+WHERE id = \$4 AND quota_reset_date < \$5`).
				WithArgs("0", periodStart, sqlmock.AnyArg(), "user-1", periodStart).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			applied, err := store.ApplyQuotaReset(context.Background(), "user-1", periodStart)
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)
		})
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementUserTotals_Additive_Unit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT minutes_processed, total_cost FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"minutes_processed", "total_cost"}).
			AddRow("95", "12.5"))
	// 95 + 4 = 99 minutes, 12.5 + 0.68 = 13.18 total cost: cost accumulates.
	mock.ExpectExec(`UPDATE users SET minutes_processed = \$1, total_cost = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("99", "13.18", sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.IncrementUserTotals(context.Background(), "user-1",
		decimal.NewFromInt(4), decimal.RequireFromString("0.68"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteJob_AtomicGroup_Unit(t *testing.T) {
	store, mock := newMockStore(t)

	job, transcript, entry := completionFixtures(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE audio_jobs SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transcripts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT minutes_processed, total_cost FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"minutes_processed", "total_cost"}).
			AddRow("0", "0"))
	mock.ExpectExec(`UPDATE users SET minutes_processed = \$1, total_cost = \$2`).
		WithArgs("4", "0.68", sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO usage_entries`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.CompleteJob(context.Background(), job, transcript, entry)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteJob_RollsBackOnFailure_Unit(t *testing.T) {
	store, mock := newMockStore(t)

	job, transcript, entry := completionFixtures(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE audio_jobs SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO transcripts`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.CompleteJob(context.Background(), job, transcript, entry)
	require.Error(t, err)

	var perr *apperrors.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "persist transcript", perr.Op)
	require.NoError(t, mock.ExpectationsWereMet())
}

func completionFixtures(t *testing.T) (*model.AudioJob, *model.Transcript, *model.UsageEntry) {
	t.Helper()
	now := time.Now().UTC()

	job := &model.AudioJob{
		ID:               "job-1",
		UserID:           "user-1",
		OriginalFilename: "call.mp3",
		FileSize:         2048,
		DurationSeconds:  decimal.NewFromInt(240),
		Language:         "en",
		ModelTier:        model.TierBase,
		Status:           model.StatusCompleted,
		Progress:         100,
		Cost:             decimal.RequireFromString("0.68"),
		MinutesProcessed: decimal.NewFromInt(4),
		CreatedAt:        now,
		UpdatedAt:        now,
		CompletedAt:      &now,
	}
	transcript := &model.Transcript{
		ID:               "tr-1",
		JobID:            "job-1",
		Text:             "hello world",
		Words:            []model.WordSegment{{Word: "hello", Start: 0, End: 0.4, Probability: 0.99}},
		DetectedLanguage: "en",
		Confidence:       0.98,
		WordCount:        2,
		CharacterCount:   11,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	entry := &model.UsageEntry{
		UserID:           "user-1",
		JobID:            "job-1",
		MinutesProcessed: decimal.NewFromInt(4),
		Cost:             decimal.RequireFromString("0.68"),
		ModelTier:        model.TierBase,
		CreatedAt:        now,
	}
	return job, transcript, entry
}
