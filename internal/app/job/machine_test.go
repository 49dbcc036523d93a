package job

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/model"
)

func newPendingJob(t *testing.T) *model.AudioJob {
	t.Helper()
	j, err := New("user-1", "meeting.mp3", "audio/mpeg", "en", model.TierBase, 1024)
	require.NoError(t, err)
	return j
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		language    string
		tier        model.ModelTier
		fileSize    int64
		wantField   string
	}{
		{
			name:        "valid_request",
			filename:    "meeting.mp3",
			contentType: "audio/mpeg",
			language:    "en",
			tier:        model.TierBase,
			fileSize:    1024,
		},
		{
			name:        "auto_language_accepted",
			filename:    "meeting.wav",
			contentType: "audio/wav",
			language:    model.LanguageAuto,
			tier:        model.TierLarge,
			fileSize:    2048,
		},
		{
			name:        "unknown_tier_rejected",
			filename:    "meeting.mp3",
			contentType: "audio/mpeg",
			language:    "en",
			tier:        model.ModelTier("huge"),
			fileSize:    1024,
			wantField:   "model_tier",
		},
		{
			name:        "unsupported_language_rejected",
			filename:    "meeting.mp3",
			contentType: "audio/mpeg",
			language:    "fr",
			tier:        model.TierBase,
			fileSize:    1024,
			wantField:   "language",
		},
		{
			name:        "oversized_file_rejected",
			filename:    "meeting.mp3",
			contentType: "audio/mpeg",
			language:    "en",
			tier:        model.TierBase,
			fileSize:    MaxFileSize + 1,
			wantField:   "file_size",
		},
		{
			name:        "non_audio_content_type_rejected",
			filename:    "meeting.pdf",
			contentType: "application/pdf",
			language:    "en",
			tier:        model.TierBase,
			fileSize:    1024,
			wantField:   "content_type",
		},
		{
			name:        "empty_filename_rejected",
			filename:    "",
			contentType: "audio/ogg",
			language:    "en",
			tier:        model.TierBase,
			fileSize:    1024,
			wantField:   "filename",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := New("user-1", tt.filename, tt.contentType, tt.language, tt.tier, tt.fileSize)

			if tt.wantField != "" {
				require.Error(t, err)
				var verr *apperrors.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
				assert.Nil(t, j)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, j.ID)
			assert.Equal(t, model.StatusPending, j.Status)
			assert.Equal(t, 0, j.Progress)
			assert.True(t, j.Cost.IsZero())
			assert.Nil(t, j.CompletedAt)
		})
	}
}

func TestSetDuration(t *testing.T) {
	j := newPendingJob(t)

	err := SetDuration(j, decimal.RequireFromString("240.5"))
	require.NoError(t, err)
	assert.Equal(t, "240.5", j.DurationSeconds.String())

	// Duration is fixed once the job leaves pending.
	require.NoError(t, Advance(j, model.StatusProcessing, 10, ""))
	err = SetDuration(j, decimal.NewFromInt(10))
	var terr *apperrors.InvalidTransitionError
	assert.ErrorAs(t, err, &terr)
}

func TestAdvance_TransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    model.JobStatus
		to      model.JobStatus
		allowed bool
	}{
		{"pending_to_processing", model.StatusPending, model.StatusProcessing, true},
		{"pending_to_cancelled", model.StatusPending, model.StatusCancelled, true},
		{"pending_to_failed", model.StatusPending, model.StatusFailed, true},
		{"pending_to_completed", model.StatusPending, model.StatusCompleted, false},
		{"processing_to_completed", model.StatusProcessing, model.StatusCompleted, true},
		{"processing_to_failed", model.StatusProcessing, model.StatusFailed, true},
		{"processing_to_cancelled", model.StatusProcessing, model.StatusCancelled, false},
		{"completed_to_processing", model.StatusCompleted, model.StatusProcessing, false},
		{"failed_to_processing", model.StatusFailed, model.StatusProcessing, false},
		{"cancelled_to_processing", model.StatusCancelled, model.StatusProcessing, false},
		{"failed_to_completed", model.StatusFailed, model.StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newPendingJob(t)
			j.Status = tt.from

			err := Advance(j, tt.to, -1, "boom")
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, j.Status)
			} else {
				var terr *apperrors.InvalidTransitionError
				require.ErrorAs(t, err, &terr)
				assert.Equal(t, tt.from, j.Status)
			}
		})
	}
}

func TestAdvance_FailedRequiresMessage(t *testing.T) {
	j := newPendingJob(t)
	require.NoError(t, Advance(j, model.StatusProcessing, 10, ""))

	err := Advance(j, model.StatusFailed, -1, "")
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.StatusProcessing, j.Status)

	require.NoError(t, Advance(j, model.StatusFailed, -1, "engine exploded"))
	assert.Equal(t, "engine exploded", j.ErrorMessage)
}

func TestAdvance_IdempotentCompletion(t *testing.T) {
	j := newPendingJob(t)
	require.NoError(t, Advance(j, model.StatusProcessing, 10, ""))
	require.NoError(t, Advance(j, model.StatusCompleted, 100, ""))

	require.NotNil(t, j.CompletedAt)
	stamped := *j.CompletedAt

	// Re-completing is a no-op, including the timestamp.
	require.NoError(t, Advance(j, model.StatusCompleted, 100, ""))
	assert.Equal(t, stamped, *j.CompletedAt)
	assert.Equal(t, model.StatusCompleted, j.Status)
}

func TestSetProgress_Monotonic(t *testing.T) {
	j := newPendingJob(t)
	require.NoError(t, Advance(j, model.StatusProcessing, 10, ""))

	require.NoError(t, SetProgress(j, 30))
	require.NoError(t, SetProgress(j, 30)) // equal is fine
	require.NoError(t, SetProgress(j, 70))

	var perr *apperrors.InvalidProgressError
	err := SetProgress(j, 50)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 70, j.Progress)

	err = SetProgress(j, 101)
	assert.ErrorAs(t, err, &perr)
}

func TestSetProgress_RejectedOnTerminal(t *testing.T) {
	j := newPendingJob(t)
	require.NoError(t, Advance(j, model.StatusProcessing, 10, ""))
	require.NoError(t, Advance(j, model.StatusCompleted, 100, ""))

	var terr *apperrors.InvalidTransitionError
	assert.ErrorAs(t, SetProgress(j, 100), &terr)
}
