// cmd/vigil/cmd_serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vigil-workers/internal/api"
	"vigil-workers/internal/common/camunda"
	"vigil-workers/internal/common/config"
	analyzemedia "vigil-workers/internal/workers/analysis/analyze-media"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when enabled, the Zeebe job worker",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	log := a.zapLog
	log.Info("starting vigil",
		zap.String("version", version),
		zap.String("environment", cfg.App.Environment),
		zap.String("address", cfg.Server.Address),
		zap.Bool("gate", a.coord.GateEnabled()),
	)

	server := api.NewServer(&api.Config{
		ServiceName:    cfg.App.Name,
		Version:        version,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
	}, a.coord, a.history, a.log)
	if a.redis != nil {
		server.AddReadinessCheck("redis", a.redis)
	}

	var jobWorker *camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err := retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(ctx, cfg.Camunda.BrokerAddress)
			return err
		}, 10, 2*time.Second, log, "Zeebe connection")
		if err != nil {
			return err
		}
		defer zeebe.Close()
		server.AddReadinessCheck("zeebe", api.CheckFunc(zeebe.HealthCheck))

		handler := analyzemedia.NewHandler(analyzemedia.LoadConfig(), a.coord, a.log)
		jobWorker = camunda.NewWorker(
			zeebe.GetClient(),
			analyzemedia.TaskType,
			cfg.Camunda.MaxJobsActive,
			config.GetDuration(cfg.Camunda.Timeout),
			handler,
			log,
		)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.Routes(),
		ReadHeaderTimeout: config.GetDuration(cfg.Server.ReadTimeout),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if jobWorker != nil {
		jobWorker.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
	cancel()

	log.Info("vigil stopped")
	return nil
}
