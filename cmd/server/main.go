package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/podshot/podshot-server/internal/api"
	"github.com/podshot/podshot-server/internal/config"
	"github.com/podshot/podshot-server/internal/diagnostics"
	"github.com/podshot/podshot-server/internal/insights"
	"github.com/podshot/podshot-server/internal/logging"
	"github.com/podshot/podshot-server/internal/media"
	"github.com/podshot/podshot-server/internal/pipeline"
	"github.com/podshot/podshot-server/internal/tasks"
	"github.com/podshot/podshot-server/internal/transcribe"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting podshot server", "version", config.Version, "port", cfg.Port())

	if cfg.OpenAIKey() == "" {
		logger.Warn("no default OpenAI API key configured; insight requests need a per-call key")
	} else {
		logger.Info("OpenAI API key loaded", "key", logging.SanitizeKey(cfg.OpenAIKey()))
	}

	tools, err := media.NewTools(cfg.YTDLPPath(), cfg.FFmpegPath(), logging.WithComponent(logger, "media"))
	if err != nil {
		return fmt.Errorf("failed to initialize media tools: %w", err)
	}

	transcriber, err := transcribe.NewWhisper(cfg.WhisperPath(), cfg.WhisperModel(), logging.WithComponent(logger, "transcribe"))
	if err != nil {
		return fmt.Errorf("failed to initialize transcriber: %w", err)
	}

	generator := insights.NewClient(insights.ClientConfig{
		BaseURL:      cfg.OpenAIBaseURL(),
		DefaultKey:   cfg.OpenAIKey(),
		NotesModel:   cfg.NotesModel(),
		SummaryModel: cfg.SummaryModel(),
		Timeout:      cfg.TimeoutInsights(),
		Logger:       logging.WithComponent(logger, "insights"),
	})

	registry := tasks.NewRegistry(cfg.TaskTTL(), cfg.TaskCapacity(), logging.WithComponent(logger, "tasks"))

	pipe := pipeline.New(tools, transcriber, generator, cfg.TempDir(), pipeline.Timeouts{
		Download:   cfg.TimeoutDownload(),
		Extract:    cfg.TimeoutExtract(),
		Transcribe: cfg.TimeoutTranscribe(),
		Insights:   cfg.TimeoutInsights(),
	}, logging.WithComponent(logger, "pipeline"))

	workers := pipeline.NewWorkers(pipe, registry, cfg.Workers(), cfg.QueueSize(), logger)

	checker := diagnostics.NewChecker(cfg.YTDLPPath(), cfg.FFmpegPath(), cfg.WhisperPath(), cfg.WhisperModel(), logging.WithComponent(logger, "diagnostics"))
	if report := checker.Refresh(); !report.AllOK {
		logger.Warn("some external tools are unavailable; affected requests will fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go registry.Start(ctx)
	workers.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:      cfg.Port(),
		Registry:  registry,
		Workers:   workers,
		Pipeline:  pipe,
		Generator: generator,
		Checker:   checker,
		Logger:    logger,
		StartTime: startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
