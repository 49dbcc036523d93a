package audio

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "voxledger/internal/app/errors"
)

func fakeProbe(output string, err error) *FFProbe {
	return &FFProbe{run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte(output), err
	}}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name    string
		probe   string
		want    string
		wantErr error
	}{
		{
			name:  "plain duration",
			probe: `{"format":{"duration":"245.832000"}}`,
			want:  "245.832",
		},
		{
			name:  "short clip",
			probe: `{"format":{"duration":"1.5"}}`,
			want:  "1.5",
		},
		{
			name:    "missing duration",
			probe:   `{"format":{}}`,
			wantErr: apperrors.ErrDurationUnknown,
		},
		{
			name:    "ffprobe N/A",
			probe:   `{"format":{"duration":"N/A"}}`,
			wantErr: apperrors.ErrDurationUnknown,
		},
		{
			name:    "zero duration",
			probe:   `{"format":{"duration":"0.000000"}}`,
			wantErr: apperrors.ErrDurationUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fakeProbe(tt.probe, nil).Duration(context.Background(), "clip.mp3")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestDuration_ExactDecimal(t *testing.T) {
	// 245.832 seconds must divide to exactly 4.0972 minutes, the kind of
	// value binary floats cannot hold.
	d, err := fakeProbe(`{"format":{"duration":"245.832000"}}`, nil).
		Duration(context.Background(), "clip.mp3")
	require.NoError(t, err)

	minutes := d.Div(decimal.NewFromInt(60))
	assert.Equal(t, "4.0972", minutes.String())
}

func TestDuration_InvalidJSON(t *testing.T) {
	_, err := fakeProbe("not json", nil).Duration(context.Background(), "clip.mp3")
	assert.Error(t, err)
}

func TestIs16kHzWav(t *testing.T) {
	probe := `{"streams":[{"codec_type":"audio","codec_name":"pcm_s16le","sample_rate":"16000"}]}`
	ok, err := fakeProbe(probe, nil).Is16kHzWav(context.Background(), "clip.wav")
	require.NoError(t, err)
	assert.True(t, ok)

	probe = `{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100"}]}`
	ok, err = fakeProbe(probe, nil).Is16kHzWav(context.Background(), "clip.mp3")
	require.NoError(t, err)
	assert.False(t, ok)
}
