// internal/pipeline/coordinator.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vigil-workers/internal/capability"
	apperrors "vigil-workers/internal/common/errors"
	"vigil-workers/internal/common/logger"
	"vigil-workers/internal/common/metrics"
	"vigil-workers/internal/common/observability"
	"vigil-workers/internal/common/validation"
	"vigil-workers/internal/models"
	adjudicateverdict "vigil-workers/internal/workers/analysis/adjudicate-verdict"
	consolidatefindings "vigil-workers/internal/workers/analysis/consolidate-findings"
	escalationgate "vigil-workers/internal/workers/analysis/escalation-gate"
	triagedispatch "vigil-workers/internal/workers/analysis/triage-dispatch"
	resourcejanitor "vigil-workers/internal/workers/infrastructure/resource-janitor"
	deconstructmedia "vigil-workers/internal/workers/media/deconstruct-media"
)

// StatusPoster is the part of the status reporter a run talks to.
type StatusPoster interface {
	Post(requestID, message string)
	Close(requestID string)
}

// Coordinator runs analysis requests. It holds no per-run state; every stage
// is constructed fresh for each run.
type Coordinator struct {
	config *Config
	caps   capability.Set
	status StatusPoster
	obs    *observability.Observability
	logger logger.Logger
}

func NewCoordinator(config *Config, caps capability.Set, status StatusPoster, obs *observability.Observability, log logger.Logger) *Coordinator {
	return &Coordinator{
		config: config,
		caps:   caps,
		status: status,
		obs:    obs,
		logger: log,
	}
}

// GateEnabled reports whether gated runs will actually consult the claim
// database.
func (c *Coordinator) GateEnabled() bool {
	return c.config.Gate.Enabled && c.caps.Lookup != nil
}

// NewRequest validates a source URL and assigns a fresh request id.
func NewRequest(sourceURL string) (models.AnalysisRequest, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if err := validation.ValidateSourceURL(sourceURL); err != nil {
		return models.AnalysisRequest{}, apperrors.NewInvalidRequestError(err.Error())
	}
	return models.AnalysisRequest{
		RequestID: uuid.NewString(),
		SourceURL: sourceURL,
	}, nil
}

// Run executes one request end to end. Temporary artifacts are released on
// every exit path. Errors are always *errors.StandardError.
func (c *Coordinator) Run(ctx context.Context, req models.AnalysisRequest, opts Options) (res *Result, err error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	res = &Result{RequestID: req.RequestID}
	res.enter(StateCreated)

	log := c.logger.WithFields(map[string]interface{}{"requestId": req.RequestID})

	if verr := validation.ValidateSourceURL(req.SourceURL); verr != nil {
		res.enter(StateFailed)
		return res, apperrors.NewInvalidRequestError(verr.Error())
	}

	jan, jerr := resourcejanitor.New(c.config.Janitor, req.RequestID, log)
	if jerr != nil {
		res.enter(StateFailed)
		return res, apperrors.NewInternalError(jerr)
	}

	metrics.AnalysesActive.Inc()
	ctx, span := c.obs.StartSpan(ctx, "pipeline.run",
		attribute.String("request.id", req.RequestID),
		attribute.Bool("gate", opts.UseGate),
	)

	defer func() {
		if rerr := jan.ReleaseAll(); rerr != nil {
			log.Warn("artifact cleanup incomplete", map[string]interface{}{"error": rerr.Error()})
		}
		metrics.AnalysesActive.Dec()
		span.End()
		c.status.Close(req.RequestID)
	}()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			stdErr := c.classify(ctx, err)
			err = stdErr
			res.Report = nil
			res.enter(StateFailed)

			span.SetStatus(codes.Error, string(stdErr.Code))
			metrics.AnalysesFailed.WithLabelValues(string(stdErr.Code)).Inc()
			c.obs.RecordRun(ctx, "failed")
			c.status.Post(req.RequestID, MsgFailedPrefix+string(stdErr.Code))
			log.Error("analysis failed", map[string]interface{}{
				"code":    string(stdErr.Code),
				"details": stdErr.Details,
				"trace":   res.Trace,
			})
			return
		}

		res.enter(StateCompleted)
		metrics.AnalysesCompleted.WithLabelValues(string(res.Source)).Inc()
		c.obs.RecordRun(ctx, "completed")
		c.status.Post(req.RequestID, MsgComplete)
		log.Info("analysis complete", map[string]interface{}{
			"source":     string(res.Source),
			"verdict":    res.Report.FinalVerdict,
			"confidence": res.Report.ConfidenceScore,
		})
	}()

	r := &run{
		Coordinator: c,
		req:         req,
		res:         res,
		jan:         jan,
		log:         log,
	}
	return res, r.execute(ctx, opts)
}

// run holds the per-request stage instances.
type run struct {
	*Coordinator
	req models.AnalysisRequest
	res *Result
	jan *resourcejanitor.Janitor
	log logger.Logger
}

func (r *run) execute(ctx context.Context, opts Options) error {
	media := deconstructmedia.NewHandler(r.config.Media, r.caps, r.log)
	gated := opts.UseGate && r.GateEnabled()

	var bundle *models.MediaBundle
	var fetched *capability.FetchedMedia
	err := r.stage(ctx, StateDeconstructing, MsgDeconstructing, func(ctx context.Context) error {
		var err error
		if !gated {
			bundle, err = media.Acquire(ctx, r.req.SourceURL, r.jan)
			return err
		}

		// The gate needs only the metadata, so decomposition waits for it.
		fetched, err = media.Fetch(ctx, r.req.SourceURL, r.jan)
		if err != nil && errors.Is(err, deconstructmedia.ErrAcquisition) && r.config.Media.SyntheticOnAcquisitionFailure {
			bundle = media.DegradedBundle(r.jan, models.MediaInfo{}, err)
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	if gated {
		var info models.MediaInfo
		if fetched != nil {
			info = fetched.Info
		}

		var report *models.VerdictReport
		var ok bool
		gate := escalationgate.NewHandler(r.config.Gate, r.caps.Lookup, r.log)
		if err := r.stage(ctx, StateGated, MsgGate, func(ctx context.Context) error {
			report, ok = gate.TryCheapVerdict(ctx, r.req.RequestID, lookupQuery(info))
			if ok || bundle != nil {
				return ctx.Err()
			}
			var err error
			bundle, err = media.Decompose(ctx, fetched, r.jan)
			return err
		}); err != nil {
			return err
		}
		if ok {
			r.res.Source = models.SourceClaimLookup
			r.res.Report = report
			return nil
		}
	}

	var findings []models.Finding
	triage := triagedispatch.NewHandler(r.config.Triage, r.caps.Generator, r.log)
	if err := r.stage(ctx, StateTriaging, MsgTriage, func(ctx context.Context) error {
		var err error
		findings, err = triage.Dispatch(ctx, bundle)
		return err
	}); err != nil {
		return err
	}

	var summary *models.ConsolidatedSummary
	consolidate := consolidatefindings.NewHandler(r.config.Consolidation, r.caps.Generator, r.log)
	if err := r.stage(ctx, StateConsolidating, MsgConsolidate, func(ctx context.Context) error {
		var err error
		summary, err = consolidate.Consolidate(ctx, bundle.Info, findings)
		return err
	}); err != nil {
		return err
	}

	var verdict *adjudicateverdict.Result
	adjudicate := adjudicateverdict.NewHandler(r.config.Verdict, r.caps.Generator, r.log)
	if err := r.stage(ctx, StateAdjudicating, MsgAdjudicate, func(ctx context.Context) error {
		var err error
		verdict, err = adjudicate.Adjudicate(ctx, bundle.Info, summary)
		return err
	}); err != nil {
		return err
	}

	report := verdict.Report
	report.RequestID = r.req.RequestID
	report.Status = models.StatusCompleted
	report.Findings = findings

	r.res.Source = models.SourceGenerativeAnalysis
	r.res.Report = report
	r.res.AdjudicationRetries = verdict.Retries
	return nil
}

// stage enters state s, announces it and times fn.
func (r *run) stage(ctx context.Context, s State, msg string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.res.enter(s)
	r.status.Post(r.req.RequestID, msg)

	ctx, span := r.obs.StartSpan(ctx, "pipeline."+strings.ToLower(string(s)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	metrics.StageDuration.WithLabelValues(strings.ToLower(string(s))).Observe(elapsed.Seconds())
	r.obs.RecordStageDuration(ctx, strings.ToLower(string(s)), elapsed)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// classify maps a stage error onto its StandardError.
func (c *Coordinator) classify(ctx context.Context, err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	switch {
	case errors.As(err, &stdErr):
		return stdErr
	case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewPipelineCancelledError(err)
	case errors.Is(err, deconstructmedia.ErrAcquisition):
		return apperrors.NewAcquisitionFailedError(err)
	case errors.Is(err, deconstructmedia.ErrDecode):
		return apperrors.NewDecodeFailedError(err)
	case errors.Is(err, triagedispatch.ErrTaskTimeout):
		return apperrors.NewTaskTimeoutError(err)
	case errors.Is(err, escalationgate.ErrLookup):
		return apperrors.NewLookupFailedError(err)
	case errors.Is(err, consolidatefindings.ErrConsolidation):
		return apperrors.NewConsolidationFailedError(err)
	case errors.Is(err, adjudicateverdict.ErrAdjudication):
		return apperrors.NewAdjudicationFailedError(err)
	default:
		return apperrors.NewInternalError(err)
	}
}

// lookupQuery is the text searched in the claim database: the title, or the
// first line of the description when the transport reports no title.
func lookupQuery(info models.MediaInfo) string {
	if q := strings.TrimSpace(info.Title); q != "" {
		return q
	}
	desc := strings.TrimSpace(info.Description)
	if i := strings.IndexByte(desc, '\n'); i >= 0 {
		desc = desc[:i]
	}
	return strings.TrimSpace(desc)
}
