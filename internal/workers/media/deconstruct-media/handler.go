// internal/workers/media/deconstruct-media/handler.go
package deconstructmedia

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"time"

	"vigil-workers/internal/capability"
	"vigil-workers/internal/common/metrics"
	"vigil-workers/internal/models"
)

var (
	ErrAcquisition = errors.New("ACQUISITION_FAILED")
	ErrDecode      = errors.New("DECODE_FAILED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Handler struct {
	config      *Config
	fetcher     capability.Fetcher
	decoder     capability.Decoder
	transcriber capability.Transcriber
	logger      Logger
}

func NewHandler(config *Config, caps capability.Set, log Logger) *Handler {
	return &Handler{
		config:      config,
		fetcher:     caps.Fetcher,
		decoder:     caps.Decoder,
		transcriber: caps.Transcriber,
		logger:      log,
	}
}

// Acquire fetches and decomposes the source media.
func (h *Handler) Acquire(ctx context.Context, url string, jan Janitor) (*models.MediaBundle, error) {
	media, err := h.Fetch(ctx, url, jan)
	if err != nil {
		if errors.Is(err, ErrAcquisition) && h.config.SyntheticOnAcquisitionFailure {
			return h.DegradedBundle(jan, models.MediaInfo{}, err), nil
		}
		return nil, err
	}
	return h.Decompose(ctx, media, jan)
}

// Fetch downloads the media with bounded retries. The file is registered with
// the janitor as soon as it exists.
func (h *Handler) Fetch(ctx context.Context, url string, jan Janitor) (*capability.FetchedMedia, error) {
	attempts := h.config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(h.backoff(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		media, err := h.fetcher.Fetch(ctx, url, jan.Dir())
		if err == nil {
			metrics.AcquisitionAttempts.WithLabelValues("success").Inc()
			jan.Track(media.Path)
			h.logger.Info("media fetched", map[string]interface{}{
				"attempt": attempt,
				"title":   media.Info.Title,
			})
			return media, nil
		}

		metrics.AcquisitionAttempts.WithLabelValues("failure").Inc()
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		h.logger.Warn("media fetch failed", map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": attempts,
			"error":       err.Error(),
		})
	}

	return nil, fmt.Errorf("%w: %d attempts: %v", ErrAcquisition, attempts, lastErr)
}

// backoff is BaseDelay * 2^(n-1), capped by MaxDelay.
func (h *Handler) backoff(n int) time.Duration {
	delay := h.config.BaseDelay * time.Duration(1<<(n-1))
	if h.config.MaxDelay > 0 && (delay > h.config.MaxDelay || delay <= 0) {
		delay = h.config.MaxDelay
	}
	return delay
}

// Decompose samples frames and transcribes audio. Decode failures degrade to
// synthetic frames; only cancellation is returned as an error.
func (h *Handler) Decompose(ctx context.Context, media *capability.FetchedMedia, jan Janitor) (*models.MediaBundle, error) {
	bundle := &models.MediaBundle{
		VideoRef: media.Path,
		Info:     media.Info,
	}

	sampler, audio, err := h.decoder.Decode(ctx, media.Path, jan.Dir())
	if audio != nil {
		jan.Track(audio.Path)
	}
	if err == nil && sampler.TotalFrames() <= 0 {
		err = fmt.Errorf("media reports %d frames", sampler.TotalFrames())
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		h.logger.Warn("decode failed, substituting synthetic frames", map[string]interface{}{
			"error": fmt.Errorf("%w: %v", ErrDecode, err).Error(),
		})
		bundle.Frames = h.syntheticFrames(jan, h.config.FrameCount)
		return bundle, nil
	}

	indices := SampleIndices(h.config, sampler.TotalFrames(), sampler.FPS())
	bundle.Frames = make([]models.FrameRef, 0, len(indices))
	for i, idx := range indices {
		dest := filepath.Join(jan.Dir(), fmt.Sprintf(framePattern, idx))
		jan.Track(dest)
		if err := sampler.Extract(ctx, idx, dest); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			h.logger.Warn("frame extraction failed", map[string]interface{}{
				"frame": idx,
				"error": err.Error(),
			})
			bundle.Frames = append(bundle.Frames, h.syntheticFrame(jan, idx, i, len(indices)))
			continue
		}
		bundle.Frames = append(bundle.Frames, models.FrameRef{Index: idx, Location: dest})
	}

	bundle.Transcript = h.transcribe(ctx, audio, jan)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	h.logger.Info("media deconstructed", map[string]interface{}{
		"frames":        len(bundle.Frames),
		"degraded":      bundle.Degraded(),
		"transcriptLen": len(bundle.Transcript),
	})
	return bundle, nil
}

// DegradedBundle is the stand-in for media that could not be acquired.
func (h *Handler) DegradedBundle(jan Janitor, info models.MediaInfo, cause error) *models.MediaBundle {
	h.logger.Warn("acquisition failed, continuing with synthetic frames", map[string]interface{}{
		"error": cause.Error(),
	})
	return &models.MediaBundle{
		Info:   info,
		Frames: h.syntheticFrames(jan, h.config.FrameCount),
	}
}

func (h *Handler) transcribe(ctx context.Context, audio *capability.AudioTrack, jan Janitor) string {
	if audio == nil || h.transcriber == nil {
		return ""
	}

	text, err := h.transcriber.Transcribe(ctx, audio)
	if err != nil {
		if !errors.Is(err, capability.ErrNoAudio) && ctx.Err() == nil {
			h.logger.Warn("transcription failed", map[string]interface{}{"error": err.Error()})
		}
		return ""
	}

	if text != "" {
		path := filepath.Join(jan.Dir(), transcriptFile)
		jan.Track(path)
		if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
			h.logger.Warn("failed to write transcript", map[string]interface{}{"error": err.Error()})
		}
	}
	return text
}

// SampleIndices picks the frame indices to extract.
//
// count mode: index_k = floor(k*total/N) for k in [0,N), deduplicated.
// interval mode: every round(fps*interval) frames starting at 0.
func SampleIndices(config *Config, total int, fps float64) []int {
	if total <= 0 {
		return nil
	}

	if config.FrameMode == FrameModeInterval {
		step := int(math.Round(fps * config.FrameInterval))
		if step < 1 {
			step = 1
		}
		indices := make([]int, 0, total/step+1)
		for i := 0; i < total; i += step {
			indices = append(indices, i)
		}
		return indices
	}

	n := config.FrameCount
	if n < 1 {
		n = 1
	}
	indices := make([]int, 0, n)
	for k := 0; k < n; k++ {
		idx := int(int64(k) * int64(total) / int64(n))
		if len(indices) > 0 && indices[len(indices)-1] == idx {
			continue
		}
		indices = append(indices, idx)
	}
	return indices
}

func (h *Handler) syntheticFrames(jan Janitor, n int) []models.FrameRef {
	if n < 1 {
		n = 1
	}
	frames := make([]models.FrameRef, n)
	for i := 0; i < n; i++ {
		frames[i] = h.syntheticFrame(jan, i, i, n)
	}
	return frames
}

func (h *Handler) syntheticFrame(jan Janitor, index, position, total int) models.FrameRef {
	path := filepath.Join(jan.Dir(), fmt.Sprintf(syntheticFile, position))
	jan.Track(path)
	if err := writePlaceholder(path); err != nil {
		h.logger.Warn("failed to write placeholder frame", map[string]interface{}{"error": err.Error()})
	}
	return models.FrameRef{
		Index:     index,
		Location:  path,
		Synthetic: true,
		Note:      fmt.Sprintf("processing failed, frame %d of %d", position+1, total),
	}
}

func writePlaceholder(path string) error {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 50}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
