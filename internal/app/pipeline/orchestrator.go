// Package pipeline drives admitted jobs end to end: admission, queueing,
// transcription, accounting, export generation.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/engine"
	"voxledger/internal/app/export"
	"voxledger/internal/app/metrics"
	"voxledger/internal/app/job"
	"voxledger/internal/app/model"
	"voxledger/internal/app/pricing"
	"voxledger/internal/app/repository"
	"voxledger/internal/app/storage"
)

// Orchestrator processes one job at a time from pending to a terminal
// state. Engine failures fail the job; persistence failures during the
// completion group leave it processing so a retry can finish it.
type Orchestrator struct {
	store     repository.Store
	engines   engine.Factory
	localizer storage.Localizer
	exports   *export.Generator
	logger    *slog.Logger
}

// NewOrchestrator wires the processing side of the pipeline. exports may
// be nil when artifact generation is disabled.
func NewOrchestrator(store repository.Store, engines engine.Factory, localizer storage.Localizer, exports *export.Generator) *Orchestrator {
	return &Orchestrator{
		store:     store,
		engines:   engines,
		localizer: localizer,
		exports:   exports,
		logger:    slog.Default().With("component", "orchestrator"),
	}
}

// Process runs the full lifecycle for one job. The returned error is
// retryable: a nil return means the job reached a terminal state (or was
// already there), a non-nil return means the job is still processing and
// the caller should redeliver.
func (o *Orchestrator) Process(ctx context.Context, jobID string) error {
	logger := o.logger.With("job_id", jobID)

	j, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, apperrors.ErrJobNotFound) {
			logger.Warn("job vanished before processing")
			return nil
		}
		return err
	}
	switch j.Status {
	case model.StatusPending:
		if err := o.advance(ctx, j, model.StatusProcessing, 10); err != nil {
			return err
		}
	case model.StatusProcessing:
		// A previous delivery reached the completion group and the
		// transaction rolled back, leaving the job processing. Run the
		// pipeline again; the accounting effects apply exactly once when
		// the completion transaction finally commits.
		logger.Info("resuming job left processing", "progress", j.Progress)
	default:
		logger.Info("skipping job in terminal state", "status", j.Status)
		return nil
	}

	eng, err := o.engines.Acquire(ctx, j.ModelTier)
	if err != nil {
		return o.fail(ctx, j, err)
	}
	if err := o.progress(ctx, j, 30); err != nil {
		return err
	}

	audioPath, cleanup, err := o.localizer.Localize(ctx, j.StorageKey)
	if err != nil {
		return o.fail(ctx, j, err)
	}
	defer cleanup()

	started := time.Now()
	result, err := eng.Transcribe(ctx, audioPath, j.Language)
	metrics.TranscriptionSeconds.WithLabelValues(string(j.ModelTier)).Observe(time.Since(started).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(ctx, j, apperrors.Wrap(ctx.Err(), "transcription cancelled"))
		}
		return o.fail(ctx, j, err)
	}
	if err := o.progress(ctx, j, 70); err != nil {
		return err
	}

	minutes := j.DurationMinutes()
	if minutes.IsZero() {
		// Duration is measured at upload; reaching this point without one
		// is a logic error to surface, not coerce.
		return o.fail(ctx, j, apperrors.ErrDurationUnknown)
	}

	cost, err := pricing.Cost(minutes, j.ModelTier)
	if err != nil {
		return o.fail(ctx, j, err)
	}

	now := time.Now().UTC()
	transcript := &model.Transcript{
		ID:               uuid.New().String(),
		JobID:            j.ID,
		Words:            result.WordSegments(),
		DetectedLanguage: result.DetectedLanguage,
		Confidence:       result.LanguageConfidence,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	transcript.SetText(result.Text())

	j.Cost = cost
	j.MinutesProcessed = minutes
	if err := job.Advance(j, model.StatusCompleted, 100, ""); err != nil {
		return o.fail(ctx, j, err)
	}

	entry := &model.UsageEntry{
		UserID:           j.UserID,
		JobID:            j.ID,
		MinutesProcessed: minutes,
		Cost:             cost,
		ModelTier:        j.ModelTier,
		CreatedAt:        now,
	}

	if err := o.store.CompleteJob(ctx, j, transcript, entry); err != nil {
		// The completion group rolled back; the job row is still
		// processing and the delivery can be retried.
		logger.Error("completion group failed", "error", err)
		return err
	}

	metrics.JobsCompleted.WithLabelValues(string(j.ModelTier)).Inc()
	minutesF, _ := minutes.Float64()
	metrics.MinutesProcessed.Add(minutesF)
	logger.Info("job completed",
		"minutes", minutes.String(),
		"cost", cost.String(),
		"language", transcript.DetectedLanguage)

	o.generateExports(ctx, transcript)
	return nil
}

// Regenerate re-renders and stores the export artifacts for a completed
// job. Exports are pure functions of the transcript, so regeneration is
// always safe to repeat.
func (o *Orchestrator) Regenerate(ctx context.Context, jobID string) error {
	transcript, err := o.store.GetTranscriptByJob(ctx, jobID)
	if err != nil {
		return err
	}
	if o.exports == nil {
		return nil
	}
	keys, err := o.exports.Generate(ctx, transcript)
	if err != nil {
		return err
	}
	return o.store.UpdateArtifactKeys(ctx, transcript.ID, keys)
}

// generateExports is best-effort: failures are logged and never touch
// the job's terminal state. Exports can be regenerated independently.
func (o *Orchestrator) generateExports(ctx context.Context, transcript *model.Transcript) {
	if o.exports == nil {
		return
	}
	keys, err := o.exports.Generate(ctx, transcript)
	if err != nil {
		o.logger.Warn("export generation incomplete", "job_id", transcript.JobID, "error", err)
	}
	if len(keys) == 0 {
		return
	}
	if err := o.store.UpdateArtifactKeys(ctx, transcript.ID, keys); err != nil {
		o.logger.Warn("recording artifact keys failed", "job_id", transcript.JobID, "error", err)
	}
}

// advance applies a status transition and persists it.
func (o *Orchestrator) advance(ctx context.Context, j *model.AudioJob, status model.JobStatus, progress int) error {
	if err := job.Advance(j, status, progress, ""); err != nil {
		return err
	}
	return o.store.UpdateJob(ctx, j)
}

// progress bumps progress on a non-terminal job and persists it.
// Resumed deliveries re-walk earlier stages, so anchors at or below the
// recorded progress are skipped rather than rejected as regressions.
func (o *Orchestrator) progress(ctx context.Context, j *model.AudioJob, progress int) error {
	if progress <= j.Progress {
		return nil
	}
	if err := job.SetProgress(j, progress); err != nil {
		return err
	}
	return o.store.UpdateJob(ctx, j)
}

// fail moves the job to failed with the error's description. It returns
// nil so queue deliveries are not retried for terminal failures.
func (o *Orchestrator) fail(ctx context.Context, j *model.AudioJob, cause error) error {
	o.logger.Error("job failed", "job_id", j.ID, "error", cause)

	if err := job.Advance(j, model.StatusFailed, -1, cause.Error()); err != nil {
		o.logger.Error("marking job failed rejected", "job_id", j.ID, "error", err)
		return err
	}
	if err := o.store.UpdateJob(ctx, j); err != nil {
		// Could not record the failure; leave it to redelivery.
		return err
	}
	metrics.JobsFailed.WithLabelValues(string(j.ModelTier)).Inc()
	return nil
}
