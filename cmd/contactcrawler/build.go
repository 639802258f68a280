package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	archivegcs "github.com/leadforge/contact-crawler/internal/archive/gcs"
	archivememory "github.com/leadforge/contact-crawler/internal/archive/memory"
	"github.com/leadforge/contact-crawler/internal/browserpool"
	"github.com/leadforge/contact-crawler/internal/config"
	"github.com/leadforge/contact-crawler/internal/crawl"
	"github.com/leadforge/contact-crawler/internal/crawler"
	"github.com/leadforge/contact-crawler/internal/extract"
	"github.com/leadforge/contact-crawler/internal/fetch/browser"
	"github.com/leadforge/contact-crawler/internal/fetch/httpfetch"
	"github.com/leadforge/contact-crawler/internal/identity"
	publishermemory "github.com/leadforge/contact-crawler/internal/publisher/memory"
	publisherpubsub "github.com/leadforge/contact-crawler/internal/publisher/pubsub"
	queuememory "github.com/leadforge/contact-crawler/internal/queue/memory"
	queuepostgres "github.com/leadforge/contact-crawler/internal/queue/postgres"
)

// buildEngine assembles the crawl engine for the configured fetch mode.
// The returned pool is non-nil only in browser mode; the caller owns its
// shutdown.
func buildEngine(cfg config.Config, logger *zap.Logger) (*crawl.Engine, *browserpool.Pool, error) {
	rotator, err := buildRotator(cfg)
	if err != nil {
		return nil, nil, err
	}
	extractor := extract.NewExtractor(extract.NewEmailFilter(buildFilterConfig(cfg)))

	var (
		fetcher crawler.Fetcher
		pool    *browserpool.Pool
	)
	switch cfg.Crawler.Mode {
	case "browser":
		pool, err = browserpool.New(browserpool.Config{
			MaxContexts: cfg.Browser.MaxContexts,
		}, logger.Named("browserpool"))
		if err != nil {
			return nil, nil, fmt.Errorf("init browser pool: %w", err)
		}
		fetcher = browser.New(browser.Config{
			NavTimeout:           cfg.NavTimeout(),
			BlockedResourceTypes: cfg.Browser.BlockedResourceTypes,
		}, pool, logger.Named("browser"))
	default:
		fetcher = httpfetch.New(httpfetch.Config{
			Timeout:           cfg.HTTPTimeout(),
			MaxRetries:        cfg.HTTP.MaxRetries,
			BackoffBase:       time.Duration(cfg.HTTP.BackoffBaseMs) * time.Millisecond,
			MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
			RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		}, logger.Named("httpfetch"))
	}

	delayMin, delayMax := cfg.DelayBounds()
	engine := crawl.NewEngine(crawl.Config{
		DelayMin: delayMin,
		DelayMax: delayMax,
	}, fetcher, rotator, extractor, logger.Named("crawl"))
	return engine, pool, nil
}

func buildRotator(cfg config.Config) (*identity.Rotator, error) {
	profiles := identity.DefaultProfiles
	if len(cfg.Identity.Profiles) > 0 {
		profiles = make([]identity.Profile, 0, len(cfg.Identity.Profiles))
		for _, p := range cfg.Identity.Profiles {
			profiles = append(profiles, identity.Profile{
				UserAgent:      p.UserAgent,
				AcceptLanguage: p.AcceptLanguage,
				Referer:        p.Referer,
			})
		}
	}
	rotator, err := identity.NewRotator(profiles, cfg.Identity.Proxies)
	if err != nil {
		return nil, fmt.Errorf("init identity rotator: %w", err)
	}
	return rotator, nil
}

// buildFilterConfig layers configured extensions over the stock lists.
func buildFilterConfig(cfg config.Config) extract.FilterConfig {
	fc := extract.DefaultFilterConfig()
	fc.BlockedDomains = append(fc.BlockedDomains, cfg.Filter.BlockedDomains...)
	fc.BlockedLocalParts = append(fc.BlockedLocalParts, cfg.Filter.BlockedLocalParts...)
	fc.AssetPrefixes = append(fc.AssetPrefixes, cfg.Filter.AssetPrefixes...)
	fc.BlockedSubstrings = append(fc.BlockedSubstrings, cfg.Filter.BlockedSubstrings...)
	return fc
}

// jobQueue is the provider-independent view the daemon needs: worker
// consumption plus API submission.
type jobQueue interface {
	crawler.Queue
	Enqueue(ctx context.Context, job crawler.Job) error
}

func buildQueue(ctx context.Context, cfg config.Config) (jobQueue, func(), error) {
	switch cfg.Queue.Provider {
	case "postgres":
		q, err := queuepostgres.New(ctx, queuepostgres.Config{
			DSN:          cfg.Queue.DSN,
			Table:        cfg.Queue.Table,
			PollInterval: time.Duration(cfg.Queue.PollIntervalMs) * time.Millisecond,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres queue: %w", err)
		}
		return q, q.Close, nil
	default:
		q := queuememory.NewQueue(cfg.Worker.QueueDepth)
		return q, q.Close, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (crawler.Publisher, func(), error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.Publisher.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("init pubsub client: %w", err)
		}
		pub := publisherpubsub.New(client)
		cleanup := func() {
			pub.Close()
			_ = client.Close()
		}
		return pub, cleanup, nil
	case "memory":
		return publishermemory.New(), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

func buildArchive(ctx context.Context, cfg config.Config) (crawler.Archive, func(), error) {
	switch cfg.Archive.Provider {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage client: %w", err)
		}
		arch, err := archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return arch, func() { _ = client.Close() }, nil
	case "memory":
		return archivememory.New(), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
