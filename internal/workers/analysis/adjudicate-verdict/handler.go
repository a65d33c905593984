// internal/workers/analysis/adjudicate-verdict/handler.go
package adjudicateverdict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vigil-workers/internal/capability"
	"vigil-workers/internal/common/metrics"
	"vigil-workers/internal/common/validation"
	"vigil-workers/internal/models"
)

var ErrAdjudication = errors.New("ADJUDICATION_FAILED")

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Handler struct {
	config    *Config
	generator capability.Generator
	logger    Logger
	schema    map[string]interface{}
}

func NewHandler(config *Config, generator capability.Generator, log Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		logger:    log,
		schema:    validation.VerdictSchema(),
	}
}

// Adjudicate turns the consolidated summary into a schema-valid verdict.
// RequestID, Status and Findings are left for the caller to fill in.
func (h *Handler) Adjudicate(ctx context.Context, info models.MediaInfo, summary *models.ConsolidatedSummary) (*Result, error) {
	if summary == nil || strings.TrimSpace(summary.Text) == "" {
		return nil, fmt.Errorf("%w: empty consolidated summary", ErrAdjudication)
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	req := capability.GenerationRequest{
		Role:         ChiefRole,
		Instructions: chiefInstructions,
		Evidence:     renderEvidence(info, summary),
		Schema:       h.schema,
	}

	var lastErr error
	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.AdjudicationRetries.Inc()
		}

		raw, err := h.generator.Generate(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			h.logger.Warn("verdict generation failed", map[string]interface{}{
				"attempt": attempt + 1,
				"error":   err.Error(),
			})
			continue
		}

		report, problems, err := h.parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAdjudication, err)
		}
		if report != nil {
			h.logger.Info("verdict accepted", map[string]interface{}{
				"verdict":    report.FinalVerdict,
				"confidence": report.ConfidenceScore,
				"retries":    attempt,
			})
			return &Result{Report: report, Retries: attempt}, nil
		}

		lastErr = fmt.Errorf("schema rejected: %s", strings.Join(problems, "; "))
		h.logger.Warn("verdict rejected by schema", map[string]interface{}{
			"attempt": attempt + 1,
			"errors":  problems,
		})
		req.Strict = true
		req.Evidence = renderEvidence(info, summary) + "\n\n" + strictNote + "\nProblems:\n- " + strings.Join(problems, "\n- ")
	}

	return nil, fmt.Errorf("%w: %v", ErrAdjudication, lastErr)
}

// parse returns a report for a valid document, or the list of problems for an
// invalid one. The error is reserved for a broken schema.
func (h *Handler) parse(raw string) (*models.VerdictReport, []string, error) {
	cleaned := StripCodeFences(raw)
	_, result, err := validation.ValidateJSON(cleaned, h.schema)
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid {
		return nil, result.GetErrorMessages(), nil
	}

	var doc verdictDocument
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, []string{fmt.Sprintf("(root): %v", err)}, nil
	}

	return &models.VerdictReport{
		FinalVerdict:    doc.FinalVerdict,
		ConfidenceScore: doc.ConfidenceScore,
		Summary:         doc.Summary,
		RiskLevel:       doc.RiskLevel,
		VisualRedFlags:  doc.VisualRedFlags,
	}, nil, nil
}

// StripCodeFences removes a surrounding markdown code block, with or without
// a language tag.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func renderEvidence(info models.MediaInfo, summary *models.ConsolidatedSummary) string {
	var b strings.Builder
	if info.Title != "" {
		fmt.Fprintf(&b, "Video title: %s\n\n", info.Title)
	}
	b.WriteString("Consolidated briefing:\n")
	b.WriteString(summary.Text)
	return b.String()
}
