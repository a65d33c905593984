package ffmpeg

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantFrames int
		wantFPS    float64
		wantAudio  bool
		wantVideo  bool
	}{
		{
			name: "frame count reported",
			raw: `{"format":{"duration":"12.0"},"streams":[
				{"codec_type":"video","nb_frames":"300","r_frame_rate":"25/1"},
				{"codec_type":"audio"}]}`,
			wantFrames: 300, wantFPS: 25, wantAudio: true, wantVideo: true,
		},
		{
			name: "frame count derived from duration",
			raw: `{"format":{"duration":"10.0"},"streams":[
				{"codec_type":"video","r_frame_rate":"30000/1001"}]}`,
			wantFrames: 300, wantFPS: 30000.0 / 1001.0, wantVideo: true,
		},
		{
			name:      "audio only",
			raw:       `{"format":{"duration":"3.0"},"streams":[{"codec_type":"audio"}]}`,
			wantAudio: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseProbe([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrames, info.TotalFrames)
			assert.InDelta(t, tt.wantFPS, info.FPS, 1e-6)
			assert.Equal(t, tt.wantAudio, info.HasAudio)
			assert.Equal(t, tt.wantVideo, info.HasVideo)
		})
	}
}

func TestParseProbe_Garbage(t *testing.T) {
	_, err := ParseProbe([]byte("not json"))
	assert.Error(t, err)
}

func TestDecode_MissingBinary(t *testing.T) {
	d := NewDecoder(&Config{
		FFmpegPath:  filepath.Join(t.TempDir(), "no-ffmpeg"),
		FFprobePath: filepath.Join(t.TempDir(), "no-ffprobe"),
	})
	_, _, err := d.Decode(context.Background(), "clip.mp4", t.TempDir())
	assert.Error(t, err)
}

func TestSamplerExtract_OutOfRange(t *testing.T) {
	s := &sampler{decoder: NewDecoder(&Config{}), path: "clip.mp4", info: &ProbeInfo{TotalFrames: 10, FPS: 25}}
	assert.Error(t, s.Extract(context.Background(), 10, filepath.Join(t.TempDir(), "f.jpg")))
	assert.Error(t, s.Extract(context.Background(), -1, filepath.Join(t.TempDir(), "f.jpg")))
}
