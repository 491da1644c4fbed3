package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/resume-ranker/internal/api"
	"github.com/knowledge-engine/resume-ranker/internal/config"
	"github.com/knowledge-engine/resume-ranker/internal/engine"
	"github.com/knowledge-engine/resume-ranker/internal/fetcher"
	"github.com/knowledge-engine/resume-ranker/internal/intake"
)

func main() {
	// 1. Config
	cfg, err := config.LoadFile(os.Getenv("RANKER_CONFIG"))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// 2. Logging
	logger := cfg.Log.NewLogger(os.Stderr)
	entry := logger.WithField("service", "resume-ranker-api")

	entry.Info("Starting Resume Ranker API Service")

	// 3. Intake and job posting fetcher
	extractor := intake.NewExtractor(cfg.Intake.MaxFileBytes)
	postings := fetcher.NewFetcher(cfg.Fetcher, extractor, entry.WithField("component", "fetcher"))

	// 4. Engine
	screener := engine.NewScreener(cfg, entry.WithField("component", "screener"), postings)

	// 5. API Server
	server := api.NewServer(screener, extractor, entry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			entry.Fatal(err)
		}
		return
	case <-ctx.Done():
	}

	entry.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		entry.WithError(err).Error("Graceful shutdown failed")
	}
}
