// Package engine defines the transcription capability contract shared by
// the local whisper.cpp binary and the remote API implementation.
package engine

import (
	"context"
	"strings"

	"voxledger/internal/app/model"
)

// Word is a sub-segment timing entry.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// Segment is one timed chunk of recognized speech.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// Result is the engine output for one audio file.
type Result struct {
	Segments           []Segment `json:"segments"`
	DetectedLanguage   string    `json:"detected_language"`
	LanguageConfidence float64   `json:"language_confidence"`
}

// Text flattens the segments into the full transcript text, one space
// between segments, trimmed.
func (r *Result) Text() string {
	parts := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		if s := strings.TrimSpace(seg.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// WordSegments flattens the per-segment word timings into one ordered
// sequence.
func (r *Result) WordSegments() []model.WordSegment {
	words := make([]model.WordSegment, 0)
	for _, seg := range r.Segments {
		for _, w := range seg.Words {
			words = append(words, model.WordSegment{
				Word:        w.Word,
				Start:       w.Start,
				End:         w.End,
				Probability: w.Probability,
			})
		}
	}
	return words
}

// Engine converts one audio file to text with word-level timings.
// languageHint is a language code or model.LanguageAuto.
type Engine interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) (*Result, error)
}

// Factory acquires an engine for a model tier. Acquisition may be slow
// (model loading) and may fail; both are isolated from the caller so a
// broken model maps to a failed job, not a crash.
type Factory interface {
	Acquire(ctx context.Context, tier model.ModelTier) (Engine, error)
}
