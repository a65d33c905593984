package triagedispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-workers/internal/capability"
	"vigil-workers/internal/models"
)

type TestLogger struct{}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {}
func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {}

type funcGenerator struct {
	fn       func(ctx context.Context, req capability.GenerationRequest) (string, error)
	mu       sync.Mutex
	requests []capability.GenerationRequest
}

func (g *funcGenerator) Generate(ctx context.Context, req capability.GenerationRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.fn(ctx, req)
}

func (g *funcGenerator) Requests() []capability.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]capability.GenerationRequest(nil), g.requests...)
}

func bundleWithFrames(n int) *models.MediaBundle {
	b := &models.MediaBundle{
		Info:       models.MediaInfo{Title: "Storm footage", Uploader: "newsdesk"},
		Transcript: "The storm hit the coast last night.",
	}
	for i := 0; i < n; i++ {
		b.Frames = append(b.Frames, models.FrameRef{Index: i * 20, Location: "/tmp/frame.jpg"})
	}
	return b
}

func isFrame(req capability.GenerationRequest, pos string) bool {
	return strings.Contains(req.Evidence, "Frame "+pos+" of")
}

func TestDispatch_OrderingIndependentOfCompletion(t *testing.T) {
	gen := &funcGenerator{fn: func(ctx context.Context, req capability.GenerationRequest) (string, error) {
		if req.Role == TextAnalystRole {
			return "transcript ok", nil
		}
		// Earlier frames finish later.
		for i, d := range []string{"1", "2", "3", "4", "5"} {
			if isFrame(req, d) {
				time.Sleep(time.Duration(5-i) * 10 * time.Millisecond)
				return "frame " + d + " ok", nil
			}
		}
		return "", errors.New("unexpected request")
	}}

	h := NewHandler(&Config{TaskTimeout: time.Second}, gen, &TestLogger{})
	findings, err := h.Dispatch(context.Background(), bundleWithFrames(5))
	require.NoError(t, err)
	require.Len(t, findings, 6)

	for i := 0; i < 5; i++ {
		assert.Equal(t, FrameTag(i), findings[i].SourceTag)
		assert.True(t, findings[i].OK)
	}
	assert.Equal(t, TranscriptTag, findings[5].SourceTag)
	assert.Equal(t, "transcript ok", findings[5].Content)
	assert.Equal(t, "frame 1 ok", findings[0].Content)
}

func TestDispatch_PartialTimeouts(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	gen := &funcGenerator{fn: func(ctx context.Context, req capability.GenerationRequest) (string, error) {
		if isFrame(req, "2") || isFrame(req, "4") {
			// Ignores its context entirely.
			<-release
			return "too late", nil
		}
		return "fine", nil
	}}

	h := NewHandler(&Config{TaskTimeout: 50 * time.Millisecond}, gen, &TestLogger{})

	start := time.Now()
	findings, err := h.Dispatch(context.Background(), bundleWithFrames(5))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, findings, 6)
	var failed []string
	for _, f := range findings {
		if !f.OK {
			failed = append(failed, f.SourceTag)
			assert.True(t, strings.HasPrefix(f.Content, "task timeout:"), f.Content)
		}
	}
	assert.Equal(t, []string{FrameTag(1), FrameTag(3)}, failed)
}

func TestDispatch_TaskErrorsBecomeFindings(t *testing.T) {
	gen := &funcGenerator{fn: func(ctx context.Context, req capability.GenerationRequest) (string, error) {
		switch {
		case req.Role == TextAnalystRole:
			return "", errors.New("rate limited")
		case isFrame(req, "1"):
			return "   ", nil
		default:
			return "ok", nil
		}
	}}

	h := NewHandler(&Config{TaskTimeout: time.Second}, gen, &TestLogger{})
	findings, err := h.Dispatch(context.Background(), bundleWithFrames(2))
	require.NoError(t, err)
	require.Len(t, findings, 3)

	assert.False(t, findings[0].OK)
	assert.Equal(t, "analysis failed: empty response", findings[0].Content)
	assert.True(t, findings[1].OK)
	assert.False(t, findings[2].OK)
	assert.Equal(t, "analysis failed: rate limited", findings[2].Content)
}

func TestDispatch_DeadlineHonouringGeneratorCountsAsTimeout(t *testing.T) {
	gen := &funcGenerator{fn: func(ctx context.Context, req capability.GenerationRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	h := NewHandler(&Config{TaskTimeout: 20 * time.Millisecond}, gen, &TestLogger{})
	findings, err := h.Dispatch(context.Background(), bundleWithFrames(1))
	require.NoError(t, err)
	for _, f := range findings {
		assert.False(t, f.OK)
		assert.True(t, strings.HasPrefix(f.Content, "task timeout:"), f.Content)
	}
}

func TestDispatch_SyntheticFramesSendNoImage(t *testing.T) {
	gen := &funcGenerator{fn: func(ctx context.Context, req capability.GenerationRequest) (string, error) {
		return "ok", nil
	}}
	bundle := &models.MediaBundle{
		Frames: []models.FrameRef{
			{Index: 0, Location: "/tmp/synthetic_000.jpg", Synthetic: true, Note: "processing failed, frame 1 of 2"},
			{Index: 1, Location: "/tmp/frame_001.jpg"},
		},
	}

	h := NewHandler(&Config{TaskTimeout: time.Second}, gen, &TestLogger{})
	findings, err := h.Dispatch(context.Background(), bundle)
	require.NoError(t, err)
	require.Len(t, findings, 3)

	var sawSynthetic, sawReal, sawTranscript bool
	for _, req := range gen.Requests() {
		switch {
		case req.Role == TextAnalystRole:
			sawTranscript = true
			assert.Contains(t, req.Evidence, "no speech was transcribed")
		case strings.Contains(req.Evidence, "processing failed, frame 1 of 2"):
			sawSynthetic = true
			assert.Empty(t, req.Images)
		default:
			sawReal = true
			assert.Equal(t, []string{"/tmp/frame_001.jpg"}, req.Images)
		}
	}
	assert.True(t, sawSynthetic)
	assert.True(t, sawReal)
	assert.True(t, sawTranscript)
}

func TestDispatch_CancellationDoesNotWait(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	gen := &funcGenerator{fn: func(ctx context.Context, req capability.GenerationRequest) (string, error) {
		<-release
		return "late", nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	h := NewHandler(&Config{TaskTimeout: time.Hour}, gen, &TestLogger{})

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	findings, err := h.Dispatch(ctx, bundleWithFrames(3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, findings)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatch_MaxParallel(t *testing.T) {
	var active, peak int32
	gen := &funcGenerator{fn: func(ctx context.Context, req capability.GenerationRequest) (string, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return "ok", nil
	}}

	h := NewHandler(&Config{TaskTimeout: time.Second, MaxParallel: 2}, gen, &TestLogger{})
	findings, err := h.Dispatch(context.Background(), bundleWithFrames(6))
	require.NoError(t, err)
	assert.Len(t, findings, 7)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestDispatch_PanickingGeneratorBecomesFinding(t *testing.T) {
	gen := &funcGenerator{fn: func(ctx context.Context, req capability.GenerationRequest) (string, error) {
		if isFrame(req, "3") {
			panic("analyst blew up")
		}
		return "ok", nil
	}}

	h := NewHandler(&Config{TaskTimeout: time.Second}, gen, &TestLogger{})
	findings, err := h.Dispatch(context.Background(), bundleWithFrames(5))
	require.NoError(t, err)
	require.Len(t, findings, 6)

	var failed []models.Finding
	for _, f := range findings {
		if !f.OK {
			failed = append(failed, f)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, FrameTag(2), failed[0].SourceTag)
	assert.Equal(t, "analysis failed: panic: analyst blew up", failed[0].Content)
}

func TestDispatch_CancellationStopsSpawning(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{}, 16)

	gen := &funcGenerator{fn: func(ctx context.Context, req capability.GenerationRequest) (string, error) {
		started <- struct{}{}
		<-release
		return "late", nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	h := NewHandler(&Config{TaskTimeout: time.Hour, MaxParallel: 1}, gen, &TestLogger{})

	go func() {
		<-started
		cancel()
	}()

	_, err := h.Dispatch(ctx, bundleWithFrames(10))
	require.ErrorIs(t, err, context.Canceled)

	// At most the task already waiting for a slot may still start.
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, len(gen.Requests()), 2)
}
