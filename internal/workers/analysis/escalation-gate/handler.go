// internal/workers/analysis/escalation-gate/handler.go
package escalationgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vigil-workers/internal/capability"
	"vigil-workers/internal/models"
)

var ErrLookup = errors.New("LOOKUP_FAILED")

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Handler struct {
	config *Config
	lookup capability.ClaimLookup
	logger Logger
}

func NewHandler(config *Config, lookup capability.ClaimLookup, log Logger) *Handler {
	return &Handler{
		config: config,
		lookup: lookup,
		logger: log,
	}
}

// TryCheapVerdict asks the claim database once. It returns a completed report
// only for a match carrying a rating; every other outcome, including lookup
// errors, means the caller must escalate.
func (h *Handler) TryCheapVerdict(ctx context.Context, requestID, query string) (*models.VerdictReport, bool) {
	if !h.config.Enabled || h.lookup == nil {
		return nil, false
	}

	query = strings.TrimSpace(query)
	if query == "" {
		h.logger.Info("no lookup query, escalating", map[string]interface{}{"requestId": requestID})
		return nil, false
	}

	match, err := h.lookup.Lookup(ctx, query)
	if err != nil {
		h.logger.Warn("claim lookup failed, escalating", map[string]interface{}{
			"requestId": requestID,
			"error":     fmt.Errorf("%w: %v", ErrLookup, err).Error(),
		})
		return nil, false
	}
	if match == nil || strings.TrimSpace(match.Rating) == "" {
		h.logger.Info("no credible claim match, escalating", map[string]interface{}{"requestId": requestID})
		return nil, false
	}

	summary := summarize(match)
	h.logger.Info("claim match found", map[string]interface{}{
		"requestId": requestID,
		"rating":    match.Rating,
	})

	return &models.VerdictReport{
		RequestID:       requestID,
		Status:          models.StatusCompleted,
		FinalVerdict:    match.Rating,
		ConfidenceScore: h.config.LookupConfidence,
		Summary:         summary,
		Findings: []models.Finding{{
			SourceTag: ClaimLookupTag,
			Content:   findingContent(match),
			OK:        true,
		}},
		Claim: match,
	}, true
}

func summarize(m *models.ClaimMatch) string {
	claimant := m.Claimant
	if claimant == "" {
		claimant = "An unattributed source"
	}
	return fmt.Sprintf("%s claimed: %q. Published fact checks rate this claim %q.", claimant, m.Text, m.Rating)
}

func findingContent(m *models.ClaimMatch) string {
	if m.URL == "" {
		return fmt.Sprintf("Rating %q for claim %q", m.Rating, m.Text)
	}
	return fmt.Sprintf("Rating %q for claim %q (%s)", m.Rating, m.Text, m.URL)
}
