// internal/workers/analysis/adjudicate-verdict/models.go
package adjudicateverdict

import "vigil-workers/internal/models"

const ChiefRole = "Chief Forensic Analyst"

const chiefInstructions = `You receive a consolidated intelligence briefing about a single video. Decide
whether the video is authentic, manipulated, or misleading. Weigh visual
evidence and spoken claims together, and lower your confidence when parts of
the analysis were degraded or unavailable.

Answer with a JSON object:
  final_verdict     short label such as "Likely Authentic" or "Likely Manipulated"
  confidence_score  number between 0.0 and 1.0
  summary           two to four sentences explaining the verdict
  risk_level        optional: "low", "medium" or "high"
  visual_red_flags  optional: list of short visual anomalies`

const strictNote = "Your previous answer was rejected. Return a single JSON object that satisfies the schema exactly."

// Result is the stage output. Retries counts generations repeated after a
// rejected answer.
type Result struct {
	Report  *models.VerdictReport
	Retries int
}

type verdictDocument struct {
	FinalVerdict    string   `json:"final_verdict"`
	ConfidenceScore float64  `json:"confidence_score"`
	Summary         string   `json:"summary"`
	RiskLevel       string   `json:"risk_level"`
	VisualRedFlags  []string `json:"visual_red_flags"`
}
