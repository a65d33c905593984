// internal/workers/analysis/consolidate-findings/handler.go
package consolidatefindings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vigil-workers/internal/capability"
	"vigil-workers/internal/models"
)

var ErrConsolidation = errors.New("CONSOLIDATION_FAILED")

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Handler struct {
	config    *Config
	generator capability.Generator
	logger    Logger
}

func NewHandler(config *Config, generator capability.Generator, log Logger) *Handler {
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	return &Handler{
		config:    config,
		generator: generator,
		logger:    log,
	}
}

// Consolidate merges all findings into one summary. Every finding, degraded
// or not, is passed to the editor verbatim.
func (h *Handler) Consolidate(ctx context.Context, info models.MediaInfo, findings []models.Finding) (*models.ConsolidatedSummary, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	req := capability.GenerationRequest{
		Role:         EditorRole,
		Instructions: editorInstructions,
		Evidence:     RenderEvidence(info, findings),
	}

	var lastErr error
	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := h.config.BaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		out, err := h.generator.Generate(ctx, req)
		if err == nil && strings.TrimSpace(out) != "" {
			h.logger.Info("findings consolidated", map[string]interface{}{
				"findings": len(findings),
				"attempts": attempt + 1,
			})
			return &models.ConsolidatedSummary{Text: strings.TrimSpace(out)}, nil
		}
		if err == nil {
			err = errors.New("empty summary")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		h.logger.Warn("consolidation attempt failed", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	return nil, fmt.Errorf("%w: %v", ErrConsolidation, lastErr)
}

// RenderEvidence lays out findings in dispatch order, one block per finding.
func RenderEvidence(info models.MediaInfo, findings []models.Finding) string {
	var b strings.Builder
	if info.Title != "" {
		fmt.Fprintf(&b, "Video title: %s\n", info.Title)
	}
	if info.Uploader != "" {
		fmt.Fprintf(&b, "Uploader: %s\n", info.Uploader)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	for _, f := range findings {
		status := "ok"
		if !f.OK {
			status = "degraded"
		}
		fmt.Fprintf(&b, "[%s | %s]\n%s\n\n", f.SourceTag, status, f.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
