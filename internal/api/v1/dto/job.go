// Package dto defines the request and response shapes of the v1 API.
package dto

import (
	"time"

	"voxledger/internal/app/model"
)

// SubmitJobForm is the multipart form accompanying an audio upload.
type SubmitJobForm struct {
	UserID    string `form:"user_id" binding:"required"`
	Language  string `form:"language"`
	ModelTier string `form:"model_tier" binding:"required,oneof=tiny base small medium large"`
}

// JobResponse is the job snapshot returned by the query surface.
type JobResponse struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	OriginalFilename string     `json:"original_filename"`
	Status           string     `json:"status"`
	Progress         int        `json:"progress"`
	Language         string     `json:"language"`
	ModelTier        string     `json:"model_tier"`
	DurationSeconds  string     `json:"duration_seconds"`
	MinutesProcessed string     `json:"minutes_processed"`
	Cost             string     `json:"cost"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// NewJobResponse converts the model. Decimals render as strings so no
// client ever re-rounds money through binary floats.
func NewJobResponse(j *model.AudioJob) JobResponse {
	return JobResponse{
		ID:               j.ID,
		UserID:           j.UserID,
		OriginalFilename: j.OriginalFilename,
		Status:           string(j.Status),
		Progress:         j.Progress,
		Language:         j.Language,
		ModelTier:        string(j.ModelTier),
		DurationSeconds:  j.DurationSeconds.String(),
		MinutesProcessed: j.MinutesProcessed.String(),
		Cost:             j.Cost.String(),
		ErrorMessage:     j.ErrorMessage,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
		CompletedAt:      j.CompletedAt,
	}
}

// JobListResponse wraps a page of jobs.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// TranscriptResponse is the full transcript with word timings.
type TranscriptResponse struct {
	ID               string              `json:"id"`
	JobID            string              `json:"job_id"`
	Text             string              `json:"text"`
	DetectedLanguage string              `json:"detected_language"`
	Confidence       float64             `json:"confidence"`
	WordCount        int                 `json:"word_count"`
	CharacterCount   int                 `json:"character_count"`
	Words            []model.WordSegment `json:"words"`
	ArtifactKeys     map[string]string   `json:"artifact_keys,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// NewTranscriptResponse converts the model.
func NewTranscriptResponse(t *model.Transcript) TranscriptResponse {
	return TranscriptResponse{
		ID:               t.ID,
		JobID:            t.JobID,
		Text:             t.Text,
		DetectedLanguage: t.DetectedLanguage,
		Confidence:       t.Confidence,
		WordCount:        t.WordCount,
		CharacterCount:   t.CharacterCount,
		Words:            t.Words,
		ArtifactKeys:     t.ArtifactKeys,
		CreatedAt:        t.CreatedAt,
	}
}
