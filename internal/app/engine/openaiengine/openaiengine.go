// Package openaiengine transcribes through the OpenAI audio API. All
// tiers map to the hosted whisper model; the tier still drives billing.
package openaiengine

import (
	"context"
	"math"

	"github.com/sashabaranov/go-openai"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/engine"
	"voxledger/internal/app/model"
)

// Transcriber calls the OpenAI transcription endpoint with verbose JSON
// output so segment and word timings come back.
type Transcriber struct {
	client *openai.Client
	model  string
}

// NewTranscriber creates a transcriber over an OpenAI client. An empty
// modelName selects whisper-1.
func NewTranscriber(client *openai.Client, modelName string) *Transcriber {
	if modelName == "" {
		modelName = string(openai.Whisper1)
	}
	return &Transcriber{client: client, model: modelName}
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath, languageHint string) (*engine.Result, error) {
	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		},
	}
	if languageHint != "" && languageHint != model.LanguageAuto {
		req.Language = languageHint
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, &apperrors.EngineError{Cause: err}
	}
	return convertResponse(&resp), nil
}

// convertResponse maps the verbose JSON response onto the engine result.
// Words carry no per-word probability from this API, so each inherits
// its segment's exp(avg_logprob).
func convertResponse(resp *openai.AudioResponse) *engine.Result {
	result := &engine.Result{DetectedLanguage: resp.Language}

	segments := make([]engine.Segment, 0, len(resp.Segments))
	var confSum float64
	for _, s := range resp.Segments {
		segments = append(segments, engine.Segment{
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
		})
		confSum += segmentConfidence(s.AvgLogprob)
	}

	// Attach words to the segment whose time range contains them.
	si := 0
	for _, w := range resp.Words {
		if len(segments) == 0 {
			break
		}
		for si < len(segments)-1 && w.Start >= segments[si].End {
			si++
		}
		prob := 1.0
		if si < len(resp.Segments) {
			prob = segmentConfidence(resp.Segments[si].AvgLogprob)
		}
		segments[si].Words = append(segments[si].Words, engine.Word{
			Word:        w.Word,
			Start:       w.Start,
			End:         w.End,
			Probability: prob,
		})
	}

	result.Segments = segments
	if len(resp.Segments) > 0 {
		result.LanguageConfidence = confSum / float64(len(resp.Segments))
	}
	return result
}

func segmentConfidence(avgLogprob float64) float64 {
	conf := math.Exp(avgLogprob)
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

// Factory hands out the shared remote transcriber for every tier. The
// hosted API has a single model, so acquisition never loads anything.
type Factory struct {
	transcriber *Transcriber
}

// NewFactory creates a factory over one shared transcriber.
func NewFactory(client *openai.Client, modelName string) *Factory {
	return &Factory{transcriber: NewTranscriber(client, modelName)}
}

func (f *Factory) Acquire(_ context.Context, tier model.ModelTier) (engine.Engine, error) {
	if !tier.Valid() {
		return nil, &apperrors.EngineError{Cause: apperrors.Newf("unknown tier %s", tier)}
	}
	return f.transcriber, nil
}
