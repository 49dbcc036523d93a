package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus is the lifecycle state of an AudioJob.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ModelTier selects the transcription engine size and is the cost-rate key.
type ModelTier string

const (
	TierTiny   ModelTier = "tiny"
	TierBase   ModelTier = "base"
	TierSmall  ModelTier = "small"
	TierMedium ModelTier = "medium"
	TierLarge  ModelTier = "large"
)

// Tiers lists all tiers in ascending compute cost order.
var Tiers = []ModelTier{TierTiny, TierBase, TierSmall, TierMedium, TierLarge}

// Valid reports whether t is in the fixed tier set.
func (t ModelTier) Valid() bool {
	switch t {
	case TierTiny, TierBase, TierSmall, TierMedium, TierLarge:
		return true
	}
	return false
}

// LanguageAuto asks the engine to detect the spoken language.
const LanguageAuto = "auto"

var supportedLanguages = map[string]bool{
	"en": true, "es": true, "de": true, "it": true, "pt": true,
	"ru": true, "ja": true, "ko": true, "zh": true, LanguageAuto: true,
}

// ValidLanguage reports whether lang is in the supported language set.
func ValidLanguage(lang string) bool {
	return supportedLanguages[lang]
}

// AudioJob is one submitted transcription request.
type AudioJob struct {
	ID               string          `json:"id" db:"id"`
	UserID           string          `json:"user_id" db:"user_id"`
	OriginalFilename string          `json:"original_filename" db:"original_filename"`
	StorageKey       string          `json:"storage_key" db:"storage_key"`
	FileSize         int64           `json:"file_size" db:"file_size"`
	DurationSeconds  decimal.Decimal `json:"duration_seconds" db:"duration_seconds"`
	Language         string          `json:"language" db:"language"`
	ModelTier        ModelTier       `json:"model_tier" db:"model_tier"`
	Status           JobStatus       `json:"status" db:"status"`
	Progress         int             `json:"progress" db:"progress"`
	ErrorMessage     string          `json:"error_message,omitempty" db:"error_message"`
	Cost             decimal.Decimal `json:"cost" db:"cost"`
	MinutesProcessed decimal.Decimal `json:"minutes_processed" db:"minutes_processed"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// DurationMinutes returns the probed duration in decimal minutes,
// zero if the audio has not been probed yet.
func (j *AudioJob) DurationMinutes() decimal.Decimal {
	if j.DurationSeconds.IsZero() {
		return decimal.Zero
	}
	return j.DurationSeconds.Div(decimal.NewFromInt(60))
}

// TableName returns the table name for AudioJob.
func (AudioJob) TableName() string {
	return "audio_jobs"
}
