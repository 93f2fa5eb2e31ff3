package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shoeboxd/shoebox/internal/config"
	"github.com/shoeboxd/shoebox/internal/documents"
	"github.com/shoeboxd/shoebox/internal/extraction"
	"github.com/shoeboxd/shoebox/internal/infrastructure"
	"github.com/shoeboxd/shoebox/internal/instances"
	"github.com/shoeboxd/shoebox/internal/jobs"
	"github.com/shoeboxd/shoebox/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		log.Fatal("infrastructure init failed:", err)
	}
	if err := infra.Start(); err != nil {
		log.Fatal("infrastructure start failed:", err)
	}
	infra.Lifecycle.WaitForStartup()

	logger := infra.Logger
	logger.Info("worker starting",
		"version", cfg.Version,
		"env", cfg.Env(),
		"model", cfg.Extraction.Model,
		"poll_interval", cfg.Worker.PollInterval,
		"idle_timeout", cfg.Worker.IdleTimeout,
	)

	conn := infra.Database.Connection()
	docs := documents.New(conn, logger, cfg.Pagination)
	queue := jobs.New(conn, logger, cfg.Pagination)
	registry := instances.New(conn, logger)

	vision, err := extraction.NewVisionClient(&cfg.Extraction)
	if err != nil {
		log.Fatal("vision client init failed:", err)
	}
	extractor := extraction.New(&cfg.Extraction, vision, logger)

	controller := worker.NewTeardownController(registry, infra.Lifecycle.RequestShutdown, logger)
	runner := worker.NewRunner(
		&cfg.Worker,
		queue,
		docs,
		registry,
		infra.Storage,
		extractor,
		controller,
		logger,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("signal received, shutting down")
		infra.Lifecycle.RequestShutdown()
	}()

	runErr := runner.Run(infra.Lifecycle.Context())
	if runErr != nil {
		logger.Error("worker stopped with error", "error", runErr)
	}

	if err := infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}

	logger.Info("worker stopped")

	if runErr != nil {
		os.Exit(1)
	}
}
