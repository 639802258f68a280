package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadforge/contact-crawler/internal/config"
	"github.com/leadforge/contact-crawler/internal/crawl"
	"github.com/leadforge/contact-crawler/internal/crawler"
	"github.com/leadforge/contact-crawler/internal/logging"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a single site and print the outcome as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runCrawl,
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	engine, pool, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Invalidate()
	}

	outcome := engine.Crawl(cmd.Context(), crawler.CrawlRequest{
		URL:                  args[0],
		MaxDepth:             cfg.Crawler.MaxDepth,
		MaxSubpages:          cfg.Crawler.MaxSubpages,
		MaxLinksPerPage:      cfg.Crawler.MaxLinksPerPage,
		MaxStoredVisitedURLs: cfg.Crawler.MaxStoredVisitedURLs,
		EarlyExitEmailCount:  cfg.Crawler.EarlyExitEmailCount,
		SubpageConcurrency:   cfg.Crawler.SubpageConcurrency,
		FetchTimeout:         cfg.HTTPTimeout(),
	})

	payload := struct {
		Status  crawler.Status       `json:"status"`
		Outcome crawler.CrawlOutcome `json:"outcome"`
	}{
		Status:  crawl.Classify(outcome),
		Outcome: outcome,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
