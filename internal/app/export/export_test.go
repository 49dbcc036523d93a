package export

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxledger/internal/app/model"
)

func sampleTranscript() *model.Transcript {
	t := &model.Transcript{
		ID:               "tr-1",
		JobID:            "job-1",
		DetectedLanguage: "en",
		Confidence:       0.98,
		Words: []model.WordSegment{
			{Word: "Hello", Start: 0.0, End: 0.4, Probability: 0.99},
			{Word: "there.", Start: 0.5, End: 0.9, Probability: 0.97},
			{Word: "General", Start: 1.2, End: 1.6, Probability: 0.98},
			{Word: "Kenobi.", Start: 1.7, End: 2.3, Probability: 0.96},
		},
	}
	t.SetText("Hello there. General Kenobi.")
	return t
}

func TestRenderText(t *testing.T) {
	out, err := Render(sampleTranscript(), FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Hello there. General Kenobi.\n", string(out))
}

func TestRenderSRT(t *testing.T) {
	out, err := Render(sampleTranscript(), FormatSRT)
	require.NoError(t, err)

	want := "1\n" +
		"00:00:00,000 --> 00:00:00,900\n" +
		"Hello there.\n\n" +
		"2\n" +
		"00:00:01,200 --> 00:00:02,300\n" +
		"General Kenobi.\n\n"
	assert.Equal(t, want, string(out))
}

func TestRenderVTT(t *testing.T) {
	out, err := Render(sampleTranscript(), FormatVTT)
	require.NoError(t, err)

	want := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:00.900\n" +
		"Hello there.\n\n" +
		"00:00:01.200 --> 00:00:02.300\n" +
		"General Kenobi.\n\n"
	assert.Equal(t, want, string(out))
}

func TestRenderJSON(t *testing.T) {
	out, err := Render(sampleTranscript(), FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		Text           string              `json:"text"`
		Language       string              `json:"language"`
		Confidence     float64             `json:"confidence"`
		WordCount      int                 `json:"word_count"`
		CharacterCount int                 `json:"character_count"`
		Words          []model.WordSegment `json:"words"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "Hello there. General Kenobi.", decoded.Text)
	assert.Equal(t, "en", decoded.Language)
	assert.Equal(t, 4, decoded.WordCount)
	assert.Len(t, decoded.Words, 4)
	assert.True(t, bytes.HasSuffix(out, []byte("\n")))
}

func TestRender_Idempotent(t *testing.T) {
	tr := sampleTranscript()
	for _, f := range AllFormats {
		first, err := Render(tr, f)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Render(tr, f)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(first, again), "format %s output drifted", f)
		}
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render(sampleTranscript(), Format("pdf"))
	assert.Error(t, err)
}

func TestBuildCues_Limits(t *testing.T) {
	t.Run("word limit", func(t *testing.T) {
		tr := &model.Transcript{}
		for i := 0; i < 25; i++ {
			tr.Words = append(tr.Words, model.WordSegment{
				Word:  "word",
				Start: float64(i) * 0.1,
				End:   float64(i)*0.1 + 0.08,
			})
		}
		cues := buildCues(tr)
		require.Len(t, cues, 3)
		assert.Len(t, strings.Fields(cues[0].text), maxCueWords)
		assert.Len(t, strings.Fields(cues[2].text), 5)
	})

	t.Run("duration limit", func(t *testing.T) {
		tr := &model.Transcript{Words: []model.WordSegment{
			{Word: "slow", Start: 0, End: 3},
			{Word: "speech", Start: 3.5, End: 6.5},
			{Word: "here", Start: 7, End: 7.5},
		}}
		cues := buildCues(tr)
		require.Len(t, cues, 2)
		assert.Equal(t, "slow speech", cues[0].text)
		assert.Equal(t, "here", cues[1].text)
	})

	t.Run("no words falls back to single cue", func(t *testing.T) {
		tr := &model.Transcript{}
		tr.SetText("plain text only")
		cues := buildCues(tr)
		require.Len(t, cues, 1)
		assert.Equal(t, "plain text only", cues[0].text)
	})

	t.Run("empty transcript", func(t *testing.T) {
		assert.Empty(t, buildCues(&model.Transcript{}))
	})
}

func TestSRTTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", srtTimestamp(0))
	assert.Equal(t, "00:01:05,250", srtTimestamp(65.25))
	assert.Equal(t, "01:02:03,004", srtTimestamp(3723.004))
	assert.Equal(t, "00:00:02.300", vttTimestamp(2.3))
}

// blobRecorder captures writes and can fail specific keys.
type blobRecorder struct {
	objects map[string][]byte
	failKey string
}

func newBlobRecorder() *blobRecorder {
	return &blobRecorder{objects: make(map[string][]byte)}
}

func (b *blobRecorder) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if key == b.failKey {
		return assert.AnError
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func testKey(jobID, format string) string {
	return "exports/" + jobID + "/transcript." + format
}

func TestGenerator_AllFormats(t *testing.T) {
	blobs := newBlobRecorder()
	gen := NewGenerator(blobs, testKey)

	keys, err := gen.Generate(context.Background(), sampleTranscript())
	require.NoError(t, err)
	require.Len(t, keys, 4)
	assert.Equal(t, "exports/job-1/transcript.srt", keys["srt"])
	assert.Contains(t, string(blobs.objects["exports/job-1/transcript.vtt"]), "WEBVTT")
}

func TestGenerator_FormatsAreIndependent(t *testing.T) {
	blobs := newBlobRecorder()
	blobs.failKey = "exports/job-1/transcript.srt"
	gen := NewGenerator(blobs, testKey)

	keys, err := gen.Generate(context.Background(), sampleTranscript())
	assert.Error(t, err)

	// The failing format is reported but the other three still land.
	assert.NotContains(t, keys, "srt")
	assert.Contains(t, keys, "txt")
	assert.Contains(t, keys, "vtt")
	assert.Contains(t, keys, "json")
}

func TestGenerator_Regeneration_ByteIdentical(t *testing.T) {
	first := newBlobRecorder()
	second := newBlobRecorder()
	tr := sampleTranscript()

	_, err := NewGenerator(first, testKey).Generate(context.Background(), tr)
	require.NoError(t, err)
	_, err = NewGenerator(second, testKey).Generate(context.Background(), tr)
	require.NoError(t, err)

	require.Equal(t, len(first.objects), len(second.objects))
	for key, data := range first.objects {
		assert.True(t, bytes.Equal(data, second.objects[key]), "artifact %s drifted", key)
	}
}
