package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadforge/contact-crawler/internal/api"
	"github.com/leadforge/contact-crawler/internal/clock/system"
	"github.com/leadforge/contact-crawler/internal/config"
	"github.com/leadforge/contact-crawler/internal/crawler"
	"github.com/leadforge/contact-crawler/internal/dispatcher"
	"github.com/leadforge/contact-crawler/internal/hash/sha256"
	"github.com/leadforge/contact-crawler/internal/id/uuid"
	"github.com/leadforge/contact-crawler/internal/logging"
	"github.com/leadforge/contact-crawler/internal/worker"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the crawl service daemon",
		Long: `Starts the worker pool consuming jobs from the configured queue
and serves the HTTP interface for health checks, metrics, and job
submission. Runs until interrupted, draining in-flight jobs on shutdown.`,
		RunE: runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, pool, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Invalidate()
	}

	queue, closeQueue, err := buildQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	publisher, closePublisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	archive, closeArchive, err := buildArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeArchive()

	hasher := sha256.New()
	clock := system.New()
	idGen := uuid.NewGenerator()

	workerCfg := worker.Config{
		Request: crawler.CrawlRequest{
			MaxDepth:             cfg.Crawler.MaxDepth,
			MaxSubpages:          cfg.Crawler.MaxSubpages,
			MaxLinksPerPage:      cfg.Crawler.MaxLinksPerPage,
			MaxStoredVisitedURLs: cfg.Crawler.MaxStoredVisitedURLs,
			EarlyExitEmailCount:  cfg.Crawler.EarlyExitEmailCount,
			SubpageConcurrency:   cfg.Crawler.SubpageConcurrency,
			FetchTimeout:         cfg.HTTPTimeout(),
		},
		Topic:         cfg.Publisher.Topic,
		ArchivePrefix: cfg.Archive.Prefix,
	}

	var workers []*worker.Worker
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		workers = append(workers, worker.New(
			queue,
			engine,
			publisher,
			archive,
			hasher,
			idGen,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(workers)

	apiServer := api.NewServer(queue, idGen, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		logger.Info("dispatcher started",
			zap.Int("workers", cfg.Worker.Concurrency),
			zap.String("mode", cfg.Crawler.Mode),
		)
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	<-dispatcherDone
	logger.Info("shutdown complete")
	return nil
}
