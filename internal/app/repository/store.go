package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"voxledger/internal/app/model"
)

// UserStore persists accounts and their cached quota aggregates.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	// ApplyQuotaReset zeroes the period counter and advances the reset date
	// in one statement, guarded so concurrent callers apply it at most once
	// per period. Returns true if this call performed the reset.
	ApplyQuotaReset(ctx context.Context, userID string, periodStart time.Time) (bool, error)
	// IncrementUserTotals adds minutes and cost to the cached aggregates.
	// Both deltas are additive; the ledger remains the source of truth.
	IncrementUserTotals(ctx context.Context, userID string, minutes, cost decimal.Decimal) error
	// DeleteUser removes the account and cascades to its jobs, transcripts
	// and usage entries.
	DeleteUser(ctx context.Context, id string) error
}

// JobStore persists audio jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.AudioJob) error
	GetJob(ctx context.Context, id string) (*model.AudioJob, error)
	UpdateJob(ctx context.Context, job *model.AudioJob) error
	ListJobsByUser(ctx context.Context, userID string, limit int) ([]model.AudioJob, error)
	DeleteJob(ctx context.Context, id string) error
}

// TranscriptStore persists transcripts, one per completed job.
type TranscriptStore interface {
	GetTranscriptByJob(ctx context.Context, jobID string) (*model.Transcript, error)
	// UpdateArtifactKeys records where exported artifacts were stored.
	UpdateArtifactKeys(ctx context.Context, transcriptID string, keys map[string]string) error
}

// UsageStore reads the append-only usage ledger. Entries are only ever
// written through CompleteJob.
type UsageStore interface {
	ListUsageByUser(ctx context.Context, userID string) ([]model.UsageEntry, error)
	GetUsageByJob(ctx context.Context, jobID string) (*model.UsageEntry, error)
}

// Store is the full persistence surface of the pipeline.
type Store interface {
	UserStore
	JobStore
	TranscriptStore
	UsageStore

	// CompleteJob applies the four completion effects in one transaction:
	// persist the transcript, mark the job completed, add the minutes and
	// cost to the user's cached totals, and append the usage entry. Either
	// all four take effect or none do.
	CompleteJob(ctx context.Context, job *model.AudioJob, transcript *model.Transcript, entry *model.UsageEntry) error

	Close() error
}
