package consolidatefindings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vigil-workers/internal/capability"
	"vigil-workers/internal/models"
)

type TestLogger struct{}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {}
func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req capability.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func testFindings() []models.Finding {
	return []models.Finding{
		{SourceTag: "frame_0", Content: "Lighting consistent.", OK: true},
		{SourceTag: "frame_1", Content: "task timeout: TASK_TIMEOUT after 1m0s", OK: false},
		{SourceTag: "transcript", Content: "Claims the flood was yesterday.", OK: true},
	}
}

func testConfig() *Config {
	return &Config{Timeout: time.Second, MaxRetries: 2, BaseDelay: time.Millisecond}
}

func TestConsolidate_IncludesEveryFinding(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req capability.GenerationRequest) bool {
		return req.Role == EditorRole &&
			req.Schema == nil &&
			len(req.Images) == 0
	})).Return("  merged briefing  ", nil).Once()

	h := NewHandler(testConfig(), gen, &TestLogger{})
	summary, err := h.Consolidate(context.Background(), models.MediaInfo{Title: "Flood"}, testFindings())
	require.NoError(t, err)
	assert.Equal(t, "merged briefing", summary.Text)

	req := gen.Calls[0].Arguments.Get(1).(capability.GenerationRequest)
	assert.Contains(t, req.Evidence, "Video title: Flood")
	for _, f := range testFindings() {
		assert.Contains(t, req.Evidence, f.Content)
		assert.Contains(t, req.Evidence, "["+f.SourceTag+" |")
	}
	assert.Contains(t, req.Evidence, "[frame_1 | degraded]")
	gen.AssertExpectations(t)
}

func TestConsolidate_RetriesTransportErrors(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("502 bad gateway")).Once()
	gen.On("Generate", mock.Anything, mock.Anything).Return("", nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything).Return("briefing", nil).Once()

	h := NewHandler(testConfig(), gen, &TestLogger{})
	summary, err := h.Consolidate(context.Background(), models.MediaInfo{}, testFindings())
	require.NoError(t, err)
	assert.Equal(t, "briefing", summary.Text)
	gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestConsolidate_Exhausted(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("unavailable"))

	h := NewHandler(testConfig(), gen, &TestLogger{})
	_, err := h.Consolidate(context.Background(), models.MediaInfo{}, testFindings())
	assert.ErrorIs(t, err, ErrConsolidation)
	gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestConsolidate_Cancelled(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewHandler(testConfig(), gen, &TestLogger{})
	_, err := h.Consolidate(ctx, models.MediaInfo{}, testFindings())
	assert.ErrorIs(t, err, context.Canceled)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestRenderEvidence_NoInfo(t *testing.T) {
	out := RenderEvidence(models.MediaInfo{}, testFindings()[:1])
	assert.Equal(t, "[frame_0 | ok]\nLighting consistent.", out)
}
