package testutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"voxledger/internal/app/model"
)

// Now is the fixed reference instant used by fixtures, mid-period so
// no accidental rollover happens in tests.
var Now = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

// NewTestUser returns a user inside the current accounting period with a
// 100-minute quota and zero consumption.
func NewTestUser(id string) *model.User {
	return &model.User{
		ID:                  id,
		Username:            id,
		Email:               id + "@example.com",
		MinutesProcessed:    decimal.Zero,
		TotalCost:           decimal.Zero,
		MonthlyQuotaMinutes: model.DefaultMonthlyQuotaMinutes,
		QuotaResetDate:      time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:           Now,
		UpdatedAt:           Now,
	}
}

// NewTestJob returns a pending job for the user with the given duration.
func NewTestJob(t *testing.T, userID string, durationSeconds int64) *model.AudioJob {
	t.Helper()
	require.NotEmpty(t, userID)
	return &model.AudioJob{
		ID:               "job-" + userID,
		UserID:           userID,
		OriginalFilename: "recording.mp3",
		StorageKey:       "audio/" + userID + "/recording.mp3",
		FileSize:         4096,
		DurationSeconds:  decimal.NewFromInt(durationSeconds),
		Language:         model.LanguageAuto,
		ModelTier:        model.TierBase,
		Status:           model.StatusPending,
		Cost:             decimal.Zero,
		MinutesProcessed: decimal.Zero,
		CreatedAt:        Now,
		UpdatedAt:        Now,
	}
}
