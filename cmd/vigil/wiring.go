// cmd/vigil/wiring.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vigil-workers/internal/api"
	"vigil-workers/internal/capability"
	"vigil-workers/internal/capability/factcheck"
	"vigil-workers/internal/capability/ffmpeg"
	"vigil-workers/internal/capability/fetch"
	"vigil-workers/internal/capability/genai"
	"vigil-workers/internal/common/aws"
	"vigil-workers/internal/common/config"
	"vigil-workers/internal/common/database"
	commonhttp "vigil-workers/internal/common/http"
	"vigil-workers/internal/common/logger"
	"vigil-workers/internal/common/observability"
	"vigil-workers/internal/pipeline"
	statusreporter "vigil-workers/internal/workers/infrastructure/status-reporter"
)

// app holds the long-lived collaborators shared by every run.
type app struct {
	cfg      *config.Config
	zapLog   *zap.Logger
	log      logger.Logger
	obs      *observability.Observability
	redis    *database.RedisClient
	reporter *statusreporter.Reporter
	history  api.StatusHistory
	coord    *pipeline.Coordinator
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// newApp wires configuration, infrastructure and the pipeline.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	a := &app{
		cfg:    cfg,
		zapLog: zapLog,
		log:    logger.NewZapAdapter(zapLog),
	}

	a.obs = observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)

	if cfg.Redis.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			a.redis, err = database.NewRedis(cfg.Redis)
			if err != nil {
				return err
			}
			return a.redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			return nil, err
		}
		zapLog.Info("Redis connected successfully")
	}

	sinks := []statusreporter.Sink{statusreporter.NewLogSink(a.log)}
	if a.redis != nil {
		redisSink := statusreporter.NewRedisSink(a.redis, config.GetDuration(cfg.Status.RedisTTL))
		sinks = append(sinks, redisSink)
		a.history = redisSink
	} else {
		recorder := statusreporter.NewRecorder(1000)
		sinks = append(sinks, recorder)
		a.history = recorder
	}
	if cfg.Status.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Status.SNS.Region, cfg.Status.SNS.TopicARN)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		sinks = append(sinks, statusreporter.NewSNSSink(sns))
	}

	statusCfg := statusreporter.LoadConfig()
	if cfg.Status.BufferSize > 0 {
		statusCfg.BufferSize = cfg.Status.BufferSize
	}
	statusCfg.RedisTTL = config.GetDuration(cfg.Status.RedisTTL)
	a.reporter = statusreporter.NewReporter(statusCfg, a.log, sinks...)

	a.coord = pipeline.NewCoordinator(pipeline.FromAppConfig(cfg), a.capabilities(), a.reporter, a.obs, a.log)
	return a, nil
}

// capabilities builds the production adapters from configuration.
func (a *app) capabilities() capability.Set {
	cfg := a.cfg

	gen := genai.NewClient(&genai.Config{
		BaseURL:            cfg.APIs.GenAI.BaseURL,
		APIKey:             cfg.APIs.GenAI.APIKey,
		Model:              cfg.APIs.GenAI.Model,
		TranscriptionModel: cfg.APIs.GenAI.TranscriptionModel,
		MaxTokens:          cfg.APIs.GenAI.MaxTokens,
		Temperature:        cfg.APIs.GenAI.Temperature,
		Timeout:            config.GetDuration(cfg.APIs.GenAI.Timeout),
	})

	var fetcher capability.Fetcher
	if cfg.Media.Fetcher == "http" {
		fetcher = fetch.NewHTTP(commonhttp.NewClient(config.GetDuration(cfg.Server.RequestTimeout)), cfg.Media.MaxDownloadBytes)
	} else {
		fetcher = fetch.NewYtDlp(&fetch.YtDlpConfig{
			BinaryPath:       cfg.Media.YtDlpPath,
			MaxDownloadBytes: cfg.Media.MaxDownloadBytes,
		})
	}

	caps := capability.Set{
		Fetcher: fetcher,
		Decoder: ffmpeg.NewDecoder(&ffmpeg.Config{
			FFmpegPath:  cfg.Media.FFmpegPath,
			FFprobePath: cfg.Media.FFprobePath,
		}),
		Transcriber: gen,
		Generator:   gen,
	}

	if cfg.APIs.FactCheck.APIKey != "" {
		var rdb *redis.Client
		if a.redis != nil {
			rdb = a.redis.Client
		}
		caps.Lookup = factcheck.NewClient(&factcheck.Config{
			BaseURL:      cfg.APIs.FactCheck.BaseURL,
			APIKey:       cfg.APIs.FactCheck.APIKey,
			LanguageCode: cfg.APIs.FactCheck.LanguageCode,
			CacheTTL:     config.GetDuration(cfg.Gate.CacheTTL),
		}, commonhttp.NewClient(config.GetDuration(cfg.APIs.FactCheck.Timeout)), rdb, a.log)
	} else {
		a.log.Warn("no fact check API key configured, claim lookups disabled", nil)
	}

	return caps
}

func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.reporter != nil {
		if err := a.reporter.Shutdown(ctx); err != nil {
			a.zapLog.Warn("status reporter shutdown incomplete", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.obs.Shutdown()
	_ = a.zapLog.Sync()
}
