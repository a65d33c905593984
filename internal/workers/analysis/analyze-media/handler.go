// internal/workers/analysis/analyze-media/handler.go
package analyzemedia

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "vigil-workers/internal/common/errors"
	"vigil-workers/internal/common/logger"
	"vigil-workers/internal/models"
	"vigil-workers/internal/pipeline"
)

const (
	TaskType = "analyze-media"
)

// Runner is the pipeline entry point the job handler drives.
type Runner interface {
	Run(ctx context.Context, req models.AnalysisRequest, opts pipeline.Options) (*pipeline.Result, error)
}

type Handler struct {
	config *Config
	runner Runner
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, runner Runner, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		runner: runner,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute runs the pipeline for one job input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	req, err := pipeline.NewRequest(input.URL)
	if err != nil {
		return nil, err
	}

	res, err := h.runner.Run(ctx, req, pipeline.Options{UseGate: input.UseGate})
	if err != nil {
		return nil, err
	}

	return &Output{
		RequestID: req.RequestID,
		Source:    res.Source,
		Report:    res.Report,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":  job.Key,
		"source":  string(output.Source),
		"verdict": output.Report.FinalVerdict,
	})
}
