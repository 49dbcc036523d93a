// Package whispercpp runs transcription through a local whisper.cpp
// binary, one loaded model per tier.
package whispercpp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"voxledger/internal/app/audio"
	"voxledger/internal/app/engine"
	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/model"
)

// transcriptionJSON mirrors the whisper.cpp --output-json-full format.
type transcriptionJSON struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text   string `json:"text"`
		Tokens []struct {
			Text    string `json:"text"`
			Offsets struct {
				From int64 `json:"from"`
				To   int64 `json:"to"`
			} `json:"offsets"`
			P float64 `json:"p"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// Transcriber shells out to one whisper.cpp binary with one model file.
type Transcriber struct {
	binaryPath string
	modelPath  string
	prober     *audio.FFProbe
	logger     *slog.Logger
}

// NewTranscriber creates a transcriber bound to a binary and model file.
func NewTranscriber(binaryPath, modelPath string) *Transcriber {
	return &Transcriber{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		prober:     audio.NewFFProbe(),
		logger:     slog.Default().With("component", "whispercpp"),
	}
}

// Transcribe converts the input to 16 kHz WAV when needed, runs the
// binary with full-JSON output and parses segments with token timings.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, languageHint string) (*engine.Result, error) {
	wavPath := audioPath
	is16k, err := t.prober.Is16kHzWav(ctx, audioPath)
	if err != nil {
		return nil, &apperrors.EngineError{Cause: err}
	}
	if !is16k {
		wavPath, err = audio.ConvertTo16kHzWav(ctx, audioPath)
		if err != nil {
			return nil, &apperrors.EngineError{Cause: err}
		}
		// The converted sibling belongs to this run only.
		defer os.Remove(wavPath)
	}

	lang := languageHint
	if lang == "" || lang == model.LanguageAuto {
		lang = "auto"
	}

	// One output path per invocation: several pool workers share this
	// process and must never read or delete each other's results.
	outBase := filepath.Join(os.TempDir(), "whisper-"+uuid.NewString())
	args := []string{
		"-m", t.modelPath,
		"-l", lang,
		"--split-on-word",
		"-ojf",
		"-of", outBase,
		"-f", wavPath,
	}

	t.logger.Info("running whisper.cpp", "binary", t.binaryPath, "model", t.modelPath, "language", lang)

	cmd := exec.CommandContext(ctx, t.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, &apperrors.EngineError{Cause: ctx.Err()}
		}
		return nil, &apperrors.EngineError{
			Cause: apperrors.Wrapf(err, "whisper.cpp failed: %s", strings.TrimSpace(stderr.String())),
		}
	}

	jsonPath := outBase + ".json"
	defer os.Remove(jsonPath)
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, &apperrors.EngineError{Cause: apperrors.Wrap(err, "read whisper.cpp output")}
	}
	return parseResult(raw)
}

func parseResult(raw []byte) (*engine.Result, error) {
	var out transcriptionJSON
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &apperrors.EngineError{Cause: apperrors.Wrap(err, "parse whisper.cpp output")}
	}

	result := &engine.Result{DetectedLanguage: out.Result.Language}
	var probSum float64
	var probCount int

	for _, seg := range out.Transcription {
		segment := engine.Segment{
			Text:  strings.TrimSpace(seg.Text),
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
		}
		for _, tok := range seg.Tokens {
			word := strings.TrimSpace(tok.Text)
			// Skip whisper.cpp special tokens like [_BEG_].
			if word == "" || strings.HasPrefix(word, "[_") {
				continue
			}
			segment.Words = append(segment.Words, engine.Word{
				Word:        word,
				Start:       float64(tok.Offsets.From) / 1000,
				End:         float64(tok.Offsets.To) / 1000,
				Probability: tok.P,
			})
			probSum += tok.P
			probCount++
		}
		result.Segments = append(result.Segments, segment)
	}

	// whisper.cpp reports no language probability; the mean token
	// probability is the closest available signal.
	if probCount > 0 {
		result.LanguageConfidence = probSum / float64(probCount)
	}
	return result, nil
}

// Factory loads one Transcriber per tier from a tier-to-model-file map
// and caches it. Acquire fails when the tier has no model or the model
// file is missing, which surfaces as a failed job rather than a crash.
type Factory struct {
	binaryPath string
	modelPaths map[model.ModelTier]string

	mu    sync.Mutex
	cache map[model.ModelTier]*Transcriber
}

// NewFactory creates an engine factory over local whisper.cpp models.
func NewFactory(binaryPath string, modelPaths map[model.ModelTier]string) *Factory {
	return &Factory{
		binaryPath: binaryPath,
		modelPaths: modelPaths,
		cache:      make(map[model.ModelTier]*Transcriber),
	}
}

func (f *Factory) Acquire(_ context.Context, tier model.ModelTier) (engine.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.cache[tier]; ok {
		return t, nil
	}

	modelPath, ok := f.modelPaths[tier]
	if !ok {
		return nil, &apperrors.EngineError{Cause: apperrors.Newf("no model configured for tier %s", tier)}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, &apperrors.EngineError{Cause: apperrors.Wrapf(err, "model file for tier %s", tier)}
	}

	t := NewTranscriber(f.binaryPath, modelPath)
	f.cache[tier] = t
	return t, nil
}
