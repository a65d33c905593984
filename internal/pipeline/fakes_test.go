package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"vigil-workers/internal/capability"
	"vigil-workers/internal/models"
	adjudicateverdict "vigil-workers/internal/workers/analysis/adjudicate-verdict"
	consolidatefindings "vigil-workers/internal/workers/analysis/consolidate-findings"
	triagedispatch "vigil-workers/internal/workers/analysis/triage-dispatch"
)

type fakeFetcher struct {
	fail bool
	info models.MediaInfo

	mu   sync.Mutex
	dirs []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, destDir string) (*capability.FetchedMedia, error) {
	f.mu.Lock()
	f.dirs = append(f.dirs, destDir)
	f.mu.Unlock()

	if f.fail {
		return nil, errors.New("connection reset")
	}
	path := filepath.Join(destDir, "media.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o600); err != nil {
		return nil, err
	}
	return &capability.FetchedMedia{Path: path, Info: f.info}, nil
}

func (f *fakeFetcher) Dirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dirs...)
}

type fakeSampler struct {
	total int
}

func (s *fakeSampler) TotalFrames() int { return s.total }
func (s *fakeSampler) FPS() float64     { return 25 }

func (s *fakeSampler) Extract(ctx context.Context, index int, dest string) error {
	return os.WriteFile(dest, []byte{0xff, 0xd8}, 0o600)
}

type fakeDecoder struct {
	total int
	fail  bool
	calls int32
}

func (d *fakeDecoder) Decode(ctx context.Context, mediaPath, workDir string) (capability.FrameSampler, *capability.AudioTrack, error) {
	atomic.AddInt32(&d.calls, 1)
	if d.fail {
		return nil, nil, errors.New("moov atom not found")
	}
	audio := filepath.Join(workDir, "audio.wav")
	if err := os.WriteFile(audio, []byte("wav"), 0o600); err != nil {
		return nil, nil, err
	}
	return &fakeSampler{total: d.total}, &capability.AudioTrack{Path: audio}, nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(ctx context.Context, track *capability.AudioTrack) (string, error) {
	return "The river burst its banks this morning.", nil
}

type fakeLookup struct {
	match *models.ClaimMatch

	mu      sync.Mutex
	queries []string
}

func (l *fakeLookup) Lookup(ctx context.Context, query string) (*models.ClaimMatch, error) {
	l.mu.Lock()
	l.queries = append(l.queries, query)
	l.mu.Unlock()
	return l.match, nil
}

const goodVerdict = `{"final_verdict":"Likely Authentic","confidence_score":0.74,"summary":"No anomalies found."}`

// roleGenerator answers by analyst role. Nil handlers fall back to a
// well-formed answer.
type roleGenerator struct {
	visual func(ctx context.Context, req capability.GenerationRequest) (string, error)
	text   func(ctx context.Context, req capability.GenerationRequest) (string, error)
	editor func(ctx context.Context, req capability.GenerationRequest) (string, error)
	chief  func(ctx context.Context, req capability.GenerationRequest) (string, error)

	calls int32
	mu    sync.Mutex
	reqs  []capability.GenerationRequest
}

func (g *roleGenerator) Generate(ctx context.Context, req capability.GenerationRequest) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	g.reqs = append(g.reqs, req)
	g.mu.Unlock()

	var fn func(ctx context.Context, req capability.GenerationRequest) (string, error)
	switch req.Role {
	case consolidatefindings.EditorRole:
		fn = g.editor
		if fn == nil {
			return "Briefing: frames consistent, transcript plausible.", nil
		}
	case adjudicateverdict.ChiefRole:
		fn = g.chief
		if fn == nil {
			return goodVerdict, nil
		}
	default:
		if req.Role == triagedispatch.TextAnalystRole {
			fn = g.text
		} else {
			fn = g.visual
		}
		if fn == nil {
			return "nothing unusual", nil
		}
	}
	return fn(ctx, req)
}

func (g *roleGenerator) Calls() int {
	return int(atomic.LoadInt32(&g.calls))
}

func (g *roleGenerator) Requests() []capability.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]capability.GenerationRequest(nil), g.reqs...)
}

type recordingStatus struct {
	mu     sync.Mutex
	msgs   []string
	closed []string
}

func (s *recordingStatus) Post(requestID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, message)
}

func (s *recordingStatus) Close(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, requestID)
}

func (s *recordingStatus) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.msgs...)
}
