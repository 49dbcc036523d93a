// Package job owns the audio job lifecycle: creation validation, the
// status transition table, and monotonic progress.
package job

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"voxledger/internal/app/errors"
	"voxledger/internal/app/model"
)

// MaxFileSize is the upload ceiling, 100 MiB.
const MaxFileSize = 100 * 1024 * 1024

// allowedContentTypes is the fixed audio MIME allow-list enforced before
// any job row exists.
var allowedContentTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/m4a":  true,
	"audio/ogg":  true,
	"audio/webm": true,
}

// AllowedContentType reports whether ct is accepted for upload.
func AllowedContentType(ct string) bool {
	return allowedContentTypes[ct]
}

// transitions is the legal status transition table. Terminal states have
// no outgoing edges.
var transitions = map[model.JobStatus][]model.JobStatus{
	model.StatusPending:    {model.StatusProcessing, model.StatusCancelled, model.StatusFailed},
	model.StatusProcessing: {model.StatusCompleted, model.StatusFailed},
}

func canTransition(from, to model.JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// New validates the request and returns a fresh job in pending with
// progress 0. No side effects; the caller persists it.
func New(userID, filename, contentType, language string, tier model.ModelTier, fileSize int64) (*model.AudioJob, error) {
	if !tier.Valid() {
		return nil, errors.NewValidationError("model_tier", "must be one of tiny, base, small, medium, large")
	}
	if !model.ValidLanguage(language) {
		return nil, errors.NewValidationError("language", "unsupported language code")
	}
	if fileSize <= 0 {
		return nil, errors.NewValidationError("file_size", "must be positive")
	}
	if fileSize > MaxFileSize {
		return nil, errors.NewValidationError("file_size", "exceeds the 100 MiB maximum")
	}
	if !AllowedContentType(contentType) {
		return nil, errors.NewValidationError("content_type", "not an allowed audio type")
	}
	if filename == "" {
		return nil, errors.NewValidationError("filename", "is required")
	}

	now := time.Now().UTC()
	return &model.AudioJob{
		ID:               uuid.New().String(),
		UserID:           userID,
		OriginalFilename: filename,
		FileSize:         fileSize,
		Language:         language,
		ModelTier:        tier,
		Status:           model.StatusPending,
		Progress:         0,
		Cost:             decimal.Zero,
		MinutesProcessed: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// SetDuration records the probed audio duration in seconds. Only legal
// while the job is still pending.
func SetDuration(j *model.AudioJob, seconds decimal.Decimal) error {
	if j.Status != model.StatusPending {
		return &errors.InvalidTransitionError{From: string(j.Status), To: string(j.Status)}
	}
	if seconds.IsNegative() {
		return errors.NewValidationError("duration", "must not be negative")
	}
	j.DurationSeconds = seconds
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Advance moves the job to newStatus, optionally bumping progress
// (progress < 0 leaves it unchanged). Re-completing an already completed
// job is a no-op; every other transition out of a terminal state is
// rejected.
func Advance(j *model.AudioJob, newStatus model.JobStatus, progress int, errorMessage string) error {
	if !newStatus.Valid() {
		return &errors.InvalidTransitionError{From: string(j.Status), To: string(newStatus)}
	}
	if j.Status == model.StatusCompleted && newStatus == model.StatusCompleted {
		return nil
	}
	if !canTransition(j.Status, newStatus) {
		return &errors.InvalidTransitionError{From: string(j.Status), To: string(newStatus)}
	}
	if newStatus == model.StatusFailed && errorMessage == "" {
		return errors.NewValidationError("error_message", "is required when failing a job")
	}

	if progress >= 0 {
		if err := SetProgress(j, progress); err != nil {
			return err
		}
	}

	j.Status = newStatus
	j.ErrorMessage = ""
	if newStatus == model.StatusFailed {
		j.ErrorMessage = errorMessage
	}
	now := time.Now().UTC()
	j.UpdatedAt = now
	// Completion timestamp is stamped exactly once.
	if newStatus == model.StatusCompleted && j.CompletedAt == nil {
		j.CompletedAt = &now
	}
	return nil
}

// SetProgress bumps progress, which must be non-decreasing and within
// 0-100 while the job is non-terminal.
func SetProgress(j *model.AudioJob, progress int) error {
	if j.Status.IsTerminal() {
		return &errors.InvalidTransitionError{From: string(j.Status), To: string(j.Status)}
	}
	if progress < 0 || progress > 100 {
		return &errors.InvalidProgressError{Current: j.Progress, Given: progress}
	}
	if progress < j.Progress {
		return &errors.InvalidProgressError{Current: j.Progress, Given: progress}
	}
	j.Progress = progress
	j.UpdatedAt = time.Now().UTC()
	return nil
}
