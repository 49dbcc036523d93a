package whispercpp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxledger/internal/app/model"
)

const sampleOutput = `{
  "result": {"language": "en"},
  "transcription": [
    {
      "offsets": {"from": 0, "to": 900},
      "text": " Hello there.",
      "tokens": [
        {"text": "[_BEG_]", "offsets": {"from": 0, "to": 0}, "p": 0.5},
        {"text": " Hello", "offsets": {"from": 0, "to": 400}, "p": 0.99},
        {"text": " there.", "offsets": {"from": 500, "to": 900}, "p": 0.97}
      ]
    },
    {
      "offsets": {"from": 1200, "to": 2300},
      "text": " General Kenobi.",
      "tokens": [
        {"text": " General", "offsets": {"from": 1200, "to": 1600}, "p": 0.98},
        {"text": " Kenobi.", "offsets": {"from": 1700, "to": 2300}, "p": 0.96}
      ]
    }
  ]
}`

func TestParseResult(t *testing.T) {
	result, err := parseResult([]byte(sampleOutput))
	require.NoError(t, err)

	assert.Equal(t, "en", result.DetectedLanguage)
	require.Len(t, result.Segments, 2)

	first := result.Segments[0]
	assert.Equal(t, "Hello there.", first.Text)
	assert.Equal(t, 0.0, first.Start)
	assert.Equal(t, 0.9, first.End)
	require.Len(t, first.Words, 2, "special tokens must be dropped")
	assert.Equal(t, "Hello", first.Words[0].Word)
	assert.Equal(t, 0.99, first.Words[0].Probability)

	assert.Equal(t, "Hello there. General Kenobi.", result.Text())
	assert.Len(t, result.WordSegments(), 4)
	assert.InDelta(t, 0.975, result.LanguageConfidence, 1e-9)
}

func TestParseResult_Malformed(t *testing.T) {
	_, err := parseResult([]byte("mangled"))
	assert.Error(t, err)
}

// Stand-in binaries for exec-level tests. The fake whisper echoes the
// input file's basename back as the transcription, so each call can be
// matched to its own output.
const ffprobe16kScript = `#!/bin/sh
echo '{"streams":[{"codec_type":"audio","codec_name":"pcm_s16le","sample_rate":"16000"}],"format":{"duration":"4.0"}}'
`

const ffprobeMP3Script = `#!/bin/sh
echo '{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100"}],"format":{"duration":"4.0"}}'
`

const fakeWhisperScript = `#!/bin/sh
out=""
in=""
prev=""
for a in "$@"; do
	case "$prev" in
	-of) out="$a" ;;
	-f) in="$a" ;;
	esac
	prev="$a"
done
name=$(basename "$in")
printf '{"result":{"language":"en"},"transcription":[{"offsets":{"from":0,"to":1000},"text":"%s","tokens":[{"text":"%s","offsets":{"from":0,"to":1000},"p":0.9}]}]}' "$name" "$name" > "$out.json"
case "$name" in
*slow*) sleep 1 ;;
esac
`

const fakeFFmpegScript = `#!/bin/sh
for last in "$@"; do :; done
printf 'RIFF' > "$last"
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestTranscribe_ConcurrentJobsKeepSeparateOutputs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	binDir := t.TempDir()
	writeScript(t, binDir, "ffprobe", ffprobe16kScript)
	whisper := writeScript(t, binDir, "whisper", fakeWhisperScript)
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	audioDir := t.TempDir()
	inputs := []string{
		filepath.Join(audioDir, "slow-meeting.wav"),
		filepath.Join(audioDir, "fast-memo.wav"),
	}
	for _, p := range inputs {
		require.NoError(t, os.WriteFile(p, []byte("wav"), 0o644))
	}

	tr := NewTranscriber(whisper, "/models/ggml-base.bin")

	var wg sync.WaitGroup
	var mu sync.Mutex
	texts := make(map[string]string)
	errs := make(chan error, len(inputs))
	for _, p := range inputs {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			res, err := tr.Transcribe(context.Background(), path, "en")
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			texts[filepath.Base(path)] = res.Text()
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Each concurrent call must get its own output, never a sibling's.
	assert.Equal(t, "slow-meeting.wav", texts["slow-meeting.wav"])
	assert.Equal(t, "fast-memo.wav", texts["fast-memo.wav"])
}

func TestTranscribe_RemovesConvertedWav(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	binDir := t.TempDir()
	writeScript(t, binDir, "ffprobe", ffprobeMP3Script)
	writeScript(t, binDir, "ffmpeg", fakeFFmpegScript)
	whisper := writeScript(t, binDir, "whisper", fakeWhisperScript)
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	audioDir := t.TempDir()
	mp3Path := filepath.Join(audioDir, "talk.mp3")
	require.NoError(t, os.WriteFile(mp3Path, []byte("mp3"), 0o644))

	tr := NewTranscriber(whisper, "/models/ggml-base.bin")
	_, err := tr.Transcribe(context.Background(), mp3Path, "en")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(audioDir, "talk_16khz.wav"))
	assert.True(t, os.IsNotExist(err), "converted wav must be cleaned up after the run")
}

func TestFactory_Acquire(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "ggml-base.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("ggml"), 0o644))

	f := NewFactory("/usr/local/bin/whisper", map[model.ModelTier]string{
		model.TierBase: modelPath,
	})

	eng, err := f.Acquire(context.Background(), model.TierBase)
	require.NoError(t, err)
	require.NotNil(t, eng)

	// Acquisition is cached.
	again, err := f.Acquire(context.Background(), model.TierBase)
	require.NoError(t, err)
	assert.Same(t, eng, again)
}

func TestFactory_Acquire_MissingModel(t *testing.T) {
	f := NewFactory("/usr/local/bin/whisper", map[model.ModelTier]string{
		model.TierBase: "/nonexistent/ggml-base.bin",
	})

	_, err := f.Acquire(context.Background(), model.TierBase)
	assert.Error(t, err)

	_, err = f.Acquire(context.Background(), model.TierLarge)
	assert.Error(t, err, "unconfigured tier must fail")
}
