// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "vigil-workers/internal/common/errors"
	"vigil-workers/internal/models"
	"vigil-workers/internal/pipeline"
)

type analyzeURLRequest struct {
	URL string `json:"url"`
}

type analyzeRequest struct {
	VideoURL string `json:"video_url"`
}

type triageReport struct {
	Agent  string `json:"agent"`
	Report string `json:"report"`
}

type analyzeURLResponse struct {
	RequestID       string         `json:"request_id"`
	Status          string         `json:"status"`
	FinalVerdict    string         `json:"final_verdict"`
	ConfidenceScore float64        `json:"confidence_score"`
	Summary         string         `json:"summary"`
	RiskLevel       string         `json:"risk_level,omitempty"`
	VisualRedFlags  []string       `json:"visual_red_flags,omitempty"`
	TriageReports   []triageReport `json:"triage_reports"`
}

type analyzeResponse struct {
	Source models.Source         `json:"source"`
	Report *models.VerdictReport `json:"report"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// handleAnalyzeURL always runs the full triage path.
func (s *Server) handleAnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var body analyzeURLRequest
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.run(r, body.URL, pipeline.Options{})
	if err != nil {
		s.writeError(w, err)
		return
	}

	report := res.Report
	out := analyzeURLResponse{
		RequestID:       report.RequestID,
		Status:          report.Status,
		FinalVerdict:    report.FinalVerdict,
		ConfidenceScore: report.ConfidenceScore,
		Summary:         report.Summary,
		RiskLevel:       report.RiskLevel,
		VisualRedFlags:  report.VisualRedFlags,
		TriageReports:   make([]triageReport, 0, len(report.Findings)),
	}
	for _, f := range report.Findings {
		out.TriageReports = append(out.TriageReports, triageReport{Agent: f.SourceTag, Report: f.Content})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAnalyze consults the claim database first when the gate is enabled.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.run(r, body.VideoURL, pipeline.Options{UseGate: s.runner.GateEnabled()})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Source: res.Source, Report: res.Report})
}

func (s *Server) run(r *http.Request, sourceURL string, opts pipeline.Options) (*pipeline.Result, error) {
	req, err := pipeline.NewRequest(sourceURL)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	s.logger.Info("analysis requested", map[string]interface{}{
		"requestId": req.RequestID,
		"url":       req.SourceURL,
		"gate":      opts.UseGate,
	})
	return s.runner.Run(ctx, req, opts)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("request_id")
	if s.history == nil {
		s.writeError(w, apperrors.NewInternalError(errors.New("status history is not configured")))
		return
	}

	updates, err := s.history.History(r.Context(), id)
	if err != nil {
		s.writeError(w, apperrors.NewInternalError(err))
		return
	}
	if len(updates) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Detail: fmt.Sprintf("no status recorded for request %q", id),
			Code:   "NOT_FOUND",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id": id,
		"updates":    updates,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": s.config.ServiceName + " video verification service is running",
		"version": s.config.Version,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.NewInvalidRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// writeError keeps error details in the log for server-side failures; only
// client errors echo them back.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	detail := stdErr.Message
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", map[string]interface{}{
			"code":    string(stdErr.Code),
			"status":  status,
			"details": stdErr.Details,
		})
	case stdErr.Details != "":
		detail = stdErr.Message + ": " + stdErr.Details
	}
	writeJSON(w, status, errorResponse{
		Detail: detail,
		Code:   string(stdErr.Code),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
