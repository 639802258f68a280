// Package worker implements the crawl pipeline execution loop.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leadforge/contact-crawler/internal/crawl"
	"github.com/leadforge/contact-crawler/internal/crawler"
)

// Config controls Worker behavior.
type Config struct {
	// Request carries the per-crawl limits applied to every job.
	Request crawler.CrawlRequest
	// Topic is the publish destination for finished results. Empty
	// disables publishing.
	Topic string
	// ArchivePrefix prefixes blocked-page snapshot paths. Snapshots are
	// written only when an archive is configured.
	ArchivePrefix string
	ContentType   string
}

// Worker consumes queue jobs, runs the crawl engine, classifies the
// result, and hands it back to the queue.
type Worker struct {
	queue     crawler.Queue
	engine    *crawl.Engine
	publisher crawler.Publisher
	archive   crawler.Archive
	hasher    crawler.Hasher
	ids       crawler.IDGenerator
	clock     crawler.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. Publisher, archive, and hasher are optional.
func New(
	queue crawler.Queue,
	engine *crawl.Engine,
	publisher crawler.Publisher,
	archive crawler.Archive,
	hasher crawler.Hasher,
	ids crawler.IDGenerator,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     queue,
		engine:    engine,
		publisher: publisher,
		archive:   archive,
		hasher:    hasher,
		ids:       ids,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queue jobs until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", job.ID), zap.String("url", job.URL))
		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job crawler.Job) {
	result := w.runJob(ctx, job)
	crawler.CrawlsByStatus.WithLabelValues(string(result.Status)).Inc()

	if result.Status == crawler.StatusCompleted {
		crawler.TotalEmailsFound.Add(float64(len(result.Outcome.Emails)))
	}
	if result.Status == crawler.StatusNeedsFallback {
		w.archiveEvidence(ctx, job, result.Outcome)
	}
	w.publishResult(ctx, result)

	if err := w.queue.Complete(ctx, result); err != nil {
		w.logger.Error("complete job failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}

// runJob executes the crawl, converting a panic into a classified error
// result so one poisoned page cannot take down the worker.
func (w *Worker) runJob(ctx context.Context, job crawler.Job) (result crawler.JobResult) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("crawl panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r),
			)
			result = crawler.JobResult{
				Job:     job,
				Status:  crawler.StatusError,
				Message: fmt.Sprintf("crawl panic: %v", r),
			}
		}
	}()

	if job.ID == "" && w.ids != nil {
		if id, err := w.ids.NewID(); err == nil {
			job.ID = id
		}
	}

	req := w.cfg.Request
	req.URL = job.URL
	if job.FetchTimeout > 0 {
		req.FetchTimeout = job.FetchTimeout
	}

	started := w.now()
	outcome := w.engine.Crawl(ctx, req)
	status := crawl.Classify(outcome)

	message := ""
	if status == crawler.StatusError && len(outcome.PageErrors) > 0 {
		message = outcome.PageErrors[0].Message
	}
	w.logger.Info("job finished",
		zap.String("job_id", job.ID),
		zap.String("url", job.URL),
		zap.String("status", string(status)),
		zap.Int("emails", len(outcome.Emails)),
		zap.Int("pages", outcome.PagesCrawled),
		zap.Duration("elapsed", w.now().Sub(started)),
	)
	return crawler.JobResult{
		Job:     job,
		Status:  status,
		Outcome: outcome,
		Message: message,
	}
}

// archiveEvidence snapshots the blocked crawl's page errors so the
// fallback pipeline can inspect what the lightweight strategy saw.
func (w *Worker) archiveEvidence(ctx context.Context, job crawler.Job, outcome crawler.CrawlOutcome) {
	if w.archive == nil || w.hasher == nil {
		return
	}
	payload := []byte(fmt.Sprintf("url=%s pages=%d errors=%d", job.URL, outcome.PagesCrawled, len(outcome.PageErrors)))
	hash, err := w.hasher.Hash(payload)
	if err != nil {
		w.logger.Warn("hash evidence failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	uri, err := w.archive.Put(ctx, w.buildArchivePath(job.ID, hash), "text/plain; charset=utf-8", payload)
	if err != nil {
		w.logger.Warn("archive evidence failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	w.logger.Debug("archived fallback evidence", zap.String("job_id", job.ID), zap.String("uri", uri))
}

func (w *Worker) now() time.Time {
	if w.clock != nil {
		return w.clock.Now()
	}
	return time.Now().UTC()
}

func (w *Worker) buildArchivePath(jobID, hash string) string {
	prefix := strings.Trim(w.cfg.ArchivePrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.txt", jobID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.txt", prefix, jobID, hash)
}

func (w *Worker) publishResult(ctx context.Context, result crawler.JobResult) {
	if w.publisher == nil || w.cfg.Topic == "" {
		return
	}
	id, err := w.publisher.Publish(ctx, w.cfg.Topic, result)
	if err != nil {
		w.logger.Warn("publish result failed",
			zap.String("job_id", result.Job.ID),
			zap.Error(err),
		)
		return
	}
	w.logger.Debug("published result",
		zap.String("job_id", result.Job.ID),
		zap.String("message_id", id),
	)
}
