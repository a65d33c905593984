package analyzemedia

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "vigil-workers/internal/common/errors"
	"vigil-workers/internal/common/logger"
	"vigil-workers/internal/models"
	"vigil-workers/internal/pipeline"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req models.AnalysisRequest, opts pipeline.Options) (*pipeline.Result, error) {
	args := m.Called(ctx, req, opts)
	res, _ := args.Get(0).(*pipeline.Result)
	return res, args.Error(1)
}

func TestHandler_Execute_Success(t *testing.T) {
	runner := new(MockRunner)
	report := &models.VerdictReport{FinalVerdict: "False", ConfidenceScore: 0.9, Summary: "Debunked."}
	runner.On("Run", mock.Anything, mock.MatchedBy(func(req models.AnalysisRequest) bool {
		return req.SourceURL == "https://videos.example/v/1" && req.RequestID != ""
	}), pipeline.Options{UseGate: true}).Return(&pipeline.Result{
		Source: models.SourceClaimLookup,
		Report: report,
		State:  pipeline.StateCompleted,
	}, nil).Once()

	h := NewHandler(&Config{Timeout: time.Second}, runner, logger.NewNoOpLogger())
	out, err := h.Execute(context.Background(), &Input{URL: "https://videos.example/v/1", UseGate: true})
	require.NoError(t, err)

	assert.Equal(t, models.SourceClaimLookup, out.Source)
	assert.Same(t, report, out.Report)
	assert.NotEmpty(t, out.RequestID)
	runner.AssertExpectations(t)
}

func TestHandler_Execute_InvalidURL(t *testing.T) {
	runner := new(MockRunner)
	h := NewHandler(&Config{Timeout: time.Second}, runner, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{URL: "not-a-url"})
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, stdErr.Code)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_PipelineError(t *testing.T) {
	runner := new(MockRunner)
	stdErr := apperrors.NewAdjudicationFailedError(errors.New("schema rejected"))
	runner.On("Run", mock.Anything, mock.Anything, pipeline.Options{}).
		Return(&pipeline.Result{State: pipeline.StateFailed}, stdErr).Once()

	h := NewHandler(&Config{Timeout: time.Second}, runner, logger.NewNoOpLogger())
	out, err := h.Execute(context.Background(), &Input{URL: "https://videos.example/v/2"})

	assert.Nil(t, out)
	assert.Same(t, stdErr, err)

	bpmn := apperrors.ConvertToBPMNError(apperrors.Normalize(err))
	assert.Equal(t, "ADJUDICATION_FAILED", bpmn.Code)
	assert.Equal(t, 1, bpmn.Retries)
}
