// internal/models/verdict.go
package models

import "time"

type Source string

const (
	SourceClaimLookup        Source = "ClaimLookup"
	SourceGenerativeAnalysis Source = "GenerativeAnalysis"
)

const StatusCompleted = "completed"

// Finding is one analyst's contribution for one media fragment. OK=false marks
// a degraded contribution, not a pipeline abort.
type Finding struct {
	SourceTag string `json:"sourceTag"`
	Content   string `json:"content"`
	OK        bool   `json:"ok"`
}

type ConsolidatedSummary struct {
	Text string `json:"text"`
}

type ClaimMatch struct {
	Text     string `json:"text"`
	Claimant string `json:"claimant"`
	Rating   string `json:"rating"`
	URL      string `json:"url"`
}

// VerdictReport is the terminal artifact of a run.
type VerdictReport struct {
	RequestID       string      `json:"request_id"`
	Status          string      `json:"status"`
	FinalVerdict    string      `json:"final_verdict"`
	ConfidenceScore float64     `json:"confidence_score"`
	Summary         string      `json:"summary"`
	Findings        []Finding   `json:"findings"`
	RiskLevel       string      `json:"risk_level,omitempty"`
	VisualRedFlags  []string    `json:"visual_red_flags,omitempty"`
	Claim           *ClaimMatch `json:"claim,omitempty"`
}

type StatusUpdate struct {
	RequestID string    `json:"requestId"`
	Seq       int       `json:"seq"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}
