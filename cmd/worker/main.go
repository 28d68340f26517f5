package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/api"
	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/services"
	"vigil-worker-go/internal/store"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	if cfg.LogdyEnabled {
		ld, _ := logging.StartLogdy(cfg)
		out := io.Writer(zerolog.ConsoleWriter{Out: os.Stderr})
		log.Logger = log.Output(zerolog.MultiLevelWriter(out, ld))
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("detector", cfg.Detector).
		Msg("Starting Vigil Worker")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sc, err := services.NewServiceContainer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	if err := store.Bootstrap(ctx, sc.Store, time.Now().UTC()); err != nil {
		log.Error().Err(err).Msg("Failed to seed store")
	}

	if err := sc.Pipeline.EnsureActive(ctx); err != nil {
		log.Warn().Err(err).Msg("No camera connected at startup")
	}

	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		sc.Pipeline.Run(ctx)
	}()

	server := api.NewServer(cfg, api.Deps{
		Store:      sc.Store,
		State:      sc.Pipeline.State(),
		Activator:  sc.Pipeline,
		Model:      sc.Detection,
		Vocabulary: sc.Classifier,
		Stream:     sc.Stream,
		Metrics:    sc.Metrics.Handler(),
	})

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stop()
	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Pipeline did not stop before the shutdown deadline")
	}

	if err := sc.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Service shutdown completed with errors")
	} else {
		log.Info().Msg("Shutdown complete")
	}
}
