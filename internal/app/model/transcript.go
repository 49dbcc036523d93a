package model

import (
	"strings"
	"time"
)

// WordSegment is one timed word from the engine output.
type WordSegment struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// Transcript is the result of a successfully completed AudioJob (exactly
// one per completed job, owned by it).
type Transcript struct {
	ID               string            `json:"id" db:"id"`
	JobID            string            `json:"job_id" db:"job_id"`
	Text             string            `json:"text" db:"text"`
	Words            []WordSegment     `json:"words" db:"words"`
	DetectedLanguage string            `json:"detected_language" db:"detected_language"`
	Confidence       float64           `json:"confidence" db:"confidence"`
	WordCount        int               `json:"word_count" db:"word_count"`
	CharacterCount   int               `json:"character_count" db:"character_count"`
	ArtifactKeys     map[string]string `json:"artifact_keys,omitempty" db:"artifact_keys"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
}

// SetText assigns the transcript text and recomputes the derived counts.
func (t *Transcript) SetText(text string) {
	t.Text = text
	t.WordCount = len(strings.Fields(text))
	t.CharacterCount = len(text)
}

// TableName returns the table name for Transcript.
func (Transcript) TableName() string {
	return "transcripts"
}
