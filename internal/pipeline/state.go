// internal/pipeline/state.go
package pipeline

import "vigil-workers/internal/models"

type State string

const (
	StateCreated        State = "Created"
	StateDeconstructing State = "Deconstructing"
	StateGated          State = "Gated"
	StateTriaging       State = "Triaging"
	StateConsolidating  State = "Consolidating"
	StateAdjudicating   State = "Adjudicating"
	StateCompleted      State = "Completed"
	StateFailed         State = "Failed"
)

// Progress messages posted to the status reporter, in pipeline order.
const (
	MsgDeconstructing = "Deconstructing media..."
	MsgGate           = "Checking claim database..."
	MsgTriage         = "Starting parallel triage analysis..."
	MsgConsolidate    = "Consolidating triage reports..."
	MsgAdjudicate     = "Performing final analysis..."
	MsgComplete       = "Analysis complete."
	MsgFailedPrefix   = "Analysis failed: "
)

// Options selects the deployment variant for a single run.
type Options struct {
	// UseGate consults the claim database before any generative analysis.
	UseGate bool
}

// Result is the outcome of one run. On failure it is still returned, with
// State set to Failed and Report nil.
type Result struct {
	RequestID           string
	Source              models.Source
	Report              *models.VerdictReport
	State               State
	Trace               []State
	AdjudicationRetries int
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}
