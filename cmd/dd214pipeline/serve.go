package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/dd214pipeline/pkg/config"
	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline worker",
	Long: `serve loads a YAML configuration file, wires every pipeline
component it names, and runs until it receives SIGINT or SIGTERM: the
ingress trigger consuming blob-create events, the orchestrator driving
each document's execution, the TTL sweep, and the metrics collector.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "path to the YAML configuration file (required)")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "address to serve /metrics, /health, /ready, /live on")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	logger := log.WithComponent("cmd")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := config.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrapping pipeline: %w", err)
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("record_store", true, "ready")
	metrics.RegisterComponent("blob_store", true, "ready")
	metrics.RegisterComponent("orchestrator", app.Executor != nil, "ready")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	logger.Info().Str("addr", metricsAddr).Msg("metrics and health endpoints listening")

	app.Start(ctx)
	logger.Info().Msg("pipeline worker started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("metrics server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("metrics server shutdown did not complete cleanly")
	}

	app.Shutdown()
	logger.Info().Msg("shutdown complete")
	return nil
}
