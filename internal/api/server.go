// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vigil-workers/internal/common/logger"
	"vigil-workers/internal/models"
	"vigil-workers/internal/pipeline"
)

// Runner is the pipeline surface the HTTP handlers drive.
type Runner interface {
	Run(ctx context.Context, req models.AnalysisRequest, opts pipeline.Options) (*pipeline.Result, error)
	GateEnabled() bool
}

// StatusHistory returns the progress updates recorded for a request.
type StatusHistory interface {
	History(ctx context.Context, requestID string) ([]models.StatusUpdate, error)
}

// Checker is a readiness dependency such as Redis.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckFunc adapts a plain function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Ping(ctx context.Context) error { return f(ctx) }

type Config struct {
	ServiceName    string
	Version        string
	CORSOrigins    []string
	RequestTimeout time.Duration
	// MaxBodyBytes bounds request bodies; 0 means 1 MiB.
	MaxBodyBytes int64
}

type Server struct {
	config  *Config
	runner  Runner
	history StatusHistory
	checks  map[string]Checker
	logger  logger.Logger
}

func NewServer(config *Config, runner Runner, history StatusHistory, log logger.Logger) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}
	return &Server{
		config:  config,
		runner:  runner,
		history: history,
		checks:  make(map[string]Checker),
		logger:  log,
	}
}

// AddReadinessCheck registers a dependency probed by GET /ready.
func (s *Server) AddReadinessCheck(name string, c Checker) {
	s.checks[name] = c
}

// Routes returns the full handler tree with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /analyze-url", s.handleAnalyzeURL)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /status/{request_id}", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", s.handleBanner)

	return s.withLogging(s.withCORS(mux))
}
