// Package audio probes and converts audio files with the ffmpeg toolset.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/model"
)

// Prober reports the playable duration of an audio file in decimal
// seconds. A zero duration means the file could not be measured.
type Prober interface {
	Duration(ctx context.Context, path string) (decimal.Decimal, error)
}

// runner executes a probe command and returns its stdout. Swappable in
// tests so no ffprobe binary is needed.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, apperrors.Wrapf(err, "%s failed: %s", name, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// FFProbe is the ffprobe-backed Prober.
type FFProbe struct {
	run runner
}

// NewFFProbe creates a prober that shells out to ffprobe.
func NewFFProbe() *FFProbe {
	return &FFProbe{run: execRunner}
}

// Duration parses `ffprobe -print_format json -show_format` output and
// returns format.duration as an exact decimal. ErrDurationUnknown when
// ffprobe reports no duration for the container.
func (p *FFProbe) Duration(ctx context.Context, path string) (decimal.Decimal, error) {
	out, err := p.run(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		path)
	if err != nil {
		return decimal.Zero, err
	}
	return parseDuration(out)
}

func parseDuration(probeJSON []byte) (decimal.Decimal, error) {
	var probe model.FFProbeOutput
	if err := json.Unmarshal(probeJSON, &probe); err != nil {
		return decimal.Zero, apperrors.Wrap(err, "parse ffprobe output")
	}
	raw := strings.TrimSpace(probe.Format.Duration)
	if raw == "" || raw == "N/A" {
		return decimal.Zero, apperrors.ErrDurationUnknown
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.Wrapf(err, "ffprobe duration %q", raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, apperrors.ErrDurationUnknown
	}
	return d, nil
}

// Is16kHzWav reports whether the file is already 16 kHz signed 16-bit
// PCM, the input format whisper.cpp expects.
func (p *FFProbe) Is16kHzWav(ctx context.Context, path string) (bool, error) {
	out, err := p.run(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		path)
	if err != nil {
		return false, err
	}

	var probe model.FFProbeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return false, apperrors.Wrap(err, "parse ffprobe output")
	}
	for _, stream := range probe.Streams {
		if stream.CodecType == "audio" && stream.CodecName == "pcm_s16le" && stream.SampleRate == 16000 {
			return true, nil
		}
	}
	return false, nil
}

// ConvertTo16kHzWav transcodes the input to a 16 kHz mono-compatible WAV
// next to the source file and returns its path. An existing output is
// reused without re-encoding.
func ConvertTo16kHzWav(ctx context.Context, inputPath string) (string, error) {
	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_16khz.wav"
	if _, err := os.Stat(outputPath); err == nil {
		slog.Debug("16kHz wav already exists, skipping conversion", "path", outputPath)
		return outputPath, nil
	}

	slog.Info("converting to 16kHz wav", "input", inputPath)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		outputPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", apperrors.Wrapf(err, "ffmpeg failed: %s", strings.TrimSpace(stderr.String()))
	}
	return outputPath, nil
}
