// internal/pipeline/config.go
package pipeline

import (
	"vigil-workers/internal/common/config"
	adjudicateverdict "vigil-workers/internal/workers/analysis/adjudicate-verdict"
	consolidatefindings "vigil-workers/internal/workers/analysis/consolidate-findings"
	escalationgate "vigil-workers/internal/workers/analysis/escalation-gate"
	triagedispatch "vigil-workers/internal/workers/analysis/triage-dispatch"
	resourcejanitor "vigil-workers/internal/workers/infrastructure/resource-janitor"
	deconstructmedia "vigil-workers/internal/workers/media/deconstruct-media"
)

// Config carries the per-stage settings every run is built from.
type Config struct {
	Janitor       *resourcejanitor.Config
	Media         *deconstructmedia.Config
	Triage        *triagedispatch.Config
	Gate          *escalationgate.Config
	Consolidation *consolidatefindings.Config
	Verdict       *adjudicateverdict.Config
}

// DefaultConfig returns each stage's defaults.
func DefaultConfig() *Config {
	return &Config{
		Janitor:       resourcejanitor.LoadConfig(),
		Media:         deconstructmedia.LoadConfig(),
		Triage:        triagedispatch.LoadConfig(),
		Gate:          escalationgate.LoadConfig(),
		Consolidation: consolidatefindings.LoadConfig(),
		Verdict:       adjudicateverdict.LoadConfig(),
	}
}

// FromAppConfig maps the loaded application config onto stage configs.
func FromAppConfig(cfg *config.Config) *Config {
	out := DefaultConfig()

	if cfg.Media.TempRoot != "" {
		out.Janitor.Root = cfg.Media.TempRoot
	}

	out.Media.MaxAttempts = cfg.Media.MaxAttempts
	out.Media.BaseDelay = config.GetDuration(cfg.Media.BaseDelay)
	out.Media.MaxDelay = config.GetDuration(cfg.Media.MaxDelay)
	out.Media.FrameMode = cfg.Media.FrameMode
	out.Media.FrameCount = cfg.Media.FrameCount
	out.Media.FrameInterval = float64(cfg.Media.FrameIntervalSeconds)
	out.Media.SyntheticOnAcquisitionFailure = cfg.Media.SyntheticOnAcquisitionFailure

	out.Triage.TaskTimeout = config.GetDuration(cfg.Triage.TaskTimeout)
	out.Triage.MaxParallel = cfg.Triage.MaxParallel

	out.Gate.Enabled = cfg.Gate.Enabled
	out.Gate.LookupConfidence = cfg.Gate.LookupConfidence

	out.Consolidation.Timeout = config.GetDuration(cfg.Consolidation.Timeout)
	out.Consolidation.MaxRetries = cfg.Consolidation.MaxRetries

	out.Verdict.Timeout = config.GetDuration(cfg.Verdict.Timeout)
	out.Verdict.MaxRetries = cfg.Verdict.MaxRetries

	return out
}
