// Package ffmpeg implements the Decoder capability on top of the ffprobe and
// ffmpeg binaries.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"vigil-workers/internal/capability"
)

type Config struct {
	FFmpegPath  string
	FFprobePath string
}

type Decoder struct {
	config *Config
}

func NewDecoder(config *Config) *Decoder {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.FFprobePath == "" {
		config.FFprobePath = "ffprobe"
	}
	return &Decoder{config: config}
}

// ProbeInfo is the subset of ffprobe output the decoder relies on.
type ProbeInfo struct {
	TotalFrames int
	FPS         float64
	Duration    float64
	HasVideo    bool
	HasAudio    bool
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		NbFrames   string `json:"nb_frames"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// ParseProbe interprets `ffprobe -print_format json -show_format -show_streams` output.
func ParseProbe(raw []byte) (*ProbeInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &ProbeInfo{}
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = d
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.FPS = parseRate(stream.RFrameRate)
			if n, err := strconv.Atoi(stream.NbFrames); err == nil {
				info.TotalFrames = n
			}
			if info.TotalFrames <= 0 {
				dur := info.Duration
				if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil && d > 0 {
					dur = d
				}
				info.TotalFrames = int(math.Round(dur * info.FPS))
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

func parseRate(rate string) float64 {
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		f, _ := strconv.ParseFloat(rate, 64)
		return f
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// Decode probes the media and, when an audio stream exists, extracts it to
// workDir/audio.wav as 16 kHz mono.
func (d *Decoder) Decode(ctx context.Context, mediaPath, workDir string) (capability.FrameSampler, *capability.AudioTrack, error) {
	out, err := d.run(ctx, d.config.FFprobePath,
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", mediaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	info, err := ParseProbe(out)
	if err != nil {
		return nil, nil, err
	}
	if !info.HasVideo || info.TotalFrames <= 0 {
		return nil, nil, fmt.Errorf("no decodable video stream in %s", filepath.Base(mediaPath))
	}

	sampler := &sampler{decoder: d, path: mediaPath, info: info}

	if !info.HasAudio {
		return sampler, nil, nil
	}

	audioPath := filepath.Join(workDir, "audio.wav")
	if _, err := d.run(ctx, d.config.FFmpegPath,
		"-y", "-v", "error", "-i", mediaPath, "-vn", "-ac", "1", "-ar", "16000", audioPath); err != nil {
		return nil, nil, fmt.Errorf("audio extraction failed: %w", err)
	}
	return sampler, &capability.AudioTrack{Path: audioPath}, nil
}

func (d *Decoder) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

type sampler struct {
	decoder *Decoder
	path    string
	info    *ProbeInfo
}

func (s *sampler) TotalFrames() int { return s.info.TotalFrames }
func (s *sampler) FPS() float64     { return s.info.FPS }

// Extract writes one frame, selected by index, as a JPEG.
func (s *sampler) Extract(ctx context.Context, index int, dest string) error {
	if index < 0 || index >= s.info.TotalFrames {
		return fmt.Errorf("frame %d out of range [0,%d)", index, s.info.TotalFrames)
	}
	_, err := s.decoder.run(ctx, s.decoder.config.FFmpegPath,
		"-y", "-v", "error", "-i", s.path,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, index),
		"-vframes", "1", "-q:v", "2", dest)
	if err != nil {
		return fmt.Errorf("extract frame %d: %w", index, err)
	}
	return nil
}
