// Package capability declares the external collaborators the pipeline consumes.
// Each interface has one method per external action so tests can fake them
// without any framework present.
package capability

import (
	"context"
	"errors"

	"vigil-workers/internal/models"
)

// ErrNoAudio is returned by a Decoder when the media carries no audio track.
var ErrNoAudio = errors.New("NO_AUDIO_TRACK")

// FetchedMedia is the raw media handle produced by a Fetcher.
type FetchedMedia struct {
	Path string
	Info models.MediaInfo
}

// Fetcher downloads source media into destDir.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir string) (*FetchedMedia, error)
}

// FrameSampler exposes random access to decoded video frames.
type FrameSampler interface {
	TotalFrames() int
	FPS() float64
	// Extract writes frame index to dest as a JPEG image.
	Extract(ctx context.Context, index int, dest string) error
}

type AudioTrack struct {
	Path string
}

// Decoder opens a media handle. The audio track is nil when the media has none.
// Any intermediate files it creates are written under workDir.
type Decoder interface {
	Decode(ctx context.Context, mediaPath, workDir string) (FrameSampler, *AudioTrack, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, track *AudioTrack) (string, error)
}

// ClaimLookup returns nil, nil when no claim matches the query.
type ClaimLookup interface {
	Lookup(ctx context.Context, query string) (*models.ClaimMatch, error)
}

// GenerationRequest is the structured boundary to a generative capability.
// Instructions, evidence and the expected output schema travel separately so
// the pipeline keeps ownership of schema validation.
type GenerationRequest struct {
	Role         string
	Instructions string
	Evidence     string
	Images       []string
	Schema       map[string]interface{}
	Strict       bool
}

type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Set bundles the capability handles for one pipeline run.
type Set struct {
	Fetcher     Fetcher
	Decoder     Decoder
	Transcriber Transcriber
	Lookup      ClaimLookup
	Generator   Generator
}
