// Package export renders completed transcripts into downloadable
// artifacts. Every renderer is a pure function of the transcript data, so
// regenerating an unchanged transcript yields byte-identical output.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	apperrors "voxledger/internal/app/errors"
	"voxledger/internal/app/model"
)

// Format is an export artifact format.
type Format string

const (
	FormatText Format = "txt"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
)

// AllFormats lists every supported format in rendering order.
var AllFormats = []Format{FormatText, FormatSRT, FormatVTT, FormatJSON}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatSRT, FormatVTT, FormatJSON:
		return true
	}
	return false
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSRT:
		return "application/x-subrip"
	case FormatVTT:
		return "text/vtt"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Cue grouping bounds for the subtitle formats.
const (
	maxCueWords   = 10
	maxCueSeconds = 5.0
)

// Render produces the artifact bytes for one format.
func Render(t *model.Transcript, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return renderText(t), nil
	case FormatSRT:
		return renderSRT(t), nil
	case FormatVTT:
		return renderVTT(t), nil
	case FormatJSON:
		return renderJSON(t)
	default:
		return nil, apperrors.NewValidationError("format", fmt.Sprintf("unsupported export format: %s", f))
	}
}

func renderText(t *model.Transcript) []byte {
	return []byte(t.Text + "\n")
}

// cue is one subtitle block: a run of consecutive words.
type cue struct {
	start, end float64
	text       string
}

// buildCues groups word segments into subtitle cues. A cue closes at the
// word limit, the duration limit, or after sentence-ending punctuation.
// With no word timing at all the whole text becomes a single cue.
func buildCues(t *model.Transcript) []cue {
	if len(t.Words) == 0 {
		if t.Text == "" {
			return nil
		}
		return []cue{{start: 0, end: 0, text: t.Text}}
	}

	var cues []cue
	var words []string
	var start float64
	var end float64

	flush := func() {
		if len(words) == 0 {
			return
		}
		cues = append(cues, cue{start: start, end: end, text: strings.Join(words, " ")})
		words = nil
	}

	for _, w := range t.Words {
		word := strings.TrimSpace(w.Word)
		if word == "" {
			continue
		}
		if len(words) == 0 {
			start = w.Start
		}
		words = append(words, word)
		end = w.End

		switch {
		case strings.HasSuffix(word, "."), strings.HasSuffix(word, "?"), strings.HasSuffix(word, "!"):
			flush()
		case len(words) >= maxCueWords:
			flush()
		case end-start >= maxCueSeconds:
			flush()
		}
	}
	flush()
	return cues
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	ms := int64(seconds*1000 + 0.5)
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// vttTimestamp is the SRT form with a dot separating milliseconds.
func vttTimestamp(seconds float64) string {
	return strings.Replace(srtTimestamp(seconds), ",", ".", 1)
}

func renderSRT(t *model.Transcript) []byte {
	var buf bytes.Buffer
	for i, c := range buildCues(t) {
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(c.start), srtTimestamp(c.end), c.text)
	}
	return buf.Bytes()
}

func renderVTT(t *model.Transcript) []byte {
	var buf bytes.Buffer
	buf.WriteString("WEBVTT\n\n")
	for _, c := range buildCues(t) {
		fmt.Fprintf(&buf, "%s --> %s\n%s\n\n", vttTimestamp(c.start), vttTimestamp(c.end), c.text)
	}
	return buf.Bytes()
}

// jsonArtifact is the stable wire shape of the JSON export. Struct fields
// marshal in declaration order, which keeps the output deterministic.
type jsonArtifact struct {
	Text           string              `json:"text"`
	Language       string              `json:"language"`
	Confidence     float64             `json:"confidence"`
	WordCount      int                 `json:"word_count"`
	CharacterCount int                 `json:"character_count"`
	Words          []model.WordSegment `json:"words"`
}

func renderJSON(t *model.Transcript) ([]byte, error) {
	words := t.Words
	if words == nil {
		words = []model.WordSegment{}
	}
	out, err := json.MarshalIndent(jsonArtifact{
		Text:           t.Text,
		Language:       t.DetectedLanguage,
		Confidence:     t.Confidence,
		WordCount:      t.WordCount,
		CharacterCount: t.CharacterCount,
		Words:          words,
	}, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, "marshal transcript export")
	}
	return append(out, '\n'), nil
}

// BlobWriter is the slice of the blob store the generator needs.
type BlobWriter interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// KeyFunc maps (jobID, format) to the artifact's storage key.
type KeyFunc func(jobID, format string) string

// Generator renders a transcript into every requested format and writes
// the artifacts to blob storage. Formats are independent: one failing to
// render or store does not block the others.
type Generator struct {
	blobs   BlobWriter
	keyFor  KeyFunc
	formats []Format
	logger  *slog.Logger
}

// NewGenerator creates a generator for the given formats, or all formats
// when none are named.
func NewGenerator(blobs BlobWriter, keyFor KeyFunc, formats ...Format) *Generator {
	if len(formats) == 0 {
		formats = AllFormats
	}
	return &Generator{
		blobs:   blobs,
		keyFor:  keyFor,
		formats: formats,
		logger:  slog.Default().With("component", "export"),
	}
}

// Generate renders and stores one artifact per configured format. It
// returns the storage keys of the artifacts that succeeded, plus a joined
// error describing any that did not.
func (g *Generator) Generate(ctx context.Context, t *model.Transcript) (map[string]string, error) {
	keys := make(map[string]string, len(g.formats))
	var errs []error

	for _, f := range g.formats {
		data, err := Render(t, f)
		if err != nil {
			g.logger.Error("render export failed", "job_id", t.JobID, "format", f, "error", err)
			errs = append(errs, apperrors.Wrapf(err, "render %s", f))
			continue
		}

		key := g.keyFor(t.JobID, string(f))
		if err := g.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), f.ContentType()); err != nil {
			g.logger.Error("store export failed", "job_id", t.JobID, "format", f, "key", key, "error", err)
			errs = append(errs, apperrors.Wrapf(err, "store %s", f))
			continue
		}
		keys[string(f)] = key
	}

	return keys, errors.Join(errs...)
}
