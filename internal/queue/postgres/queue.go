// Package postgres provides a Postgres-backed job queue.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadforge/contact-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrEmpty is returned by Dequeue when no pending job is available.
var ErrEmpty = errors.New("no pending jobs")

// Config controls the Postgres connection pool backing the queue.
type Config struct {
	DSN             string
	Table           string
	PollInterval    time.Duration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Queue claims pending jobs from a Postgres table and writes results back.
// Claiming uses FOR UPDATE SKIP LOCKED so concurrent workers never take
// the same row.
type Queue struct {
	pool  pgxPool
	table string
	poll  time.Duration
}

// New creates a Postgres-backed queue using the provided config.
func New(ctx context.Context, cfg Config) (*Queue, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("queue.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newWithPool(pool, cfg)
}

// NewWithPool constructs a queue from an existing pool (primarily for
// testing).
func NewWithPool(pool pgxPool, cfg Config) (*Queue, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newWithPool(pool, cfg)
}

func newWithPool(pool pgxPool, cfg Config) (*Queue, error) {
	table := cfg.Table
	if table == "" {
		table = "crawl_jobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	return &Queue{pool: pool, table: table, poll: poll}, nil
}

// Close releases the underlying pool resources.
func (q *Queue) Close() {
	if q == nil || q.pool == nil {
		return
	}
	q.pool.Close()
}

// Enqueue inserts a new pending job row. A zero FetchTimeout is stored
// as NULL so the worker's configured default applies.
func (q *Queue) Enqueue(ctx context.Context, job crawler.Job) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, url, status, fetch_timeout_ms, created_at)
VALUES ($1, $2, 'pending', $3, NOW())`, q.table)
	var timeoutMs *int64
	if job.FetchTimeout > 0 {
		ms := job.FetchTimeout.Milliseconds()
		timeoutMs = &ms
	}
	if _, err := q.pool.Exec(ctx, query, job.ID, job.URL, timeoutMs); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks until a pending job can be claimed or the context ends.
// It polls because LISTEN/NOTIFY is not assumed to be configured.
func (q *Queue) Dequeue(ctx context.Context) (crawler.Job, error) {
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()
	for {
		job, err := q.claim(ctx)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, ErrEmpty) {
			return crawler.Job{}, err
		}
		select {
		case <-ctx.Done():
			return crawler.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// claim atomically moves one pending row to running and returns it.
func (q *Queue) claim(ctx context.Context) (crawler.Job, error) {
	query := fmt.Sprintf(`
UPDATE %s SET status = 'running', started_at = NOW()
WHERE id = (
	SELECT id FROM %s
	WHERE status = 'pending'
	ORDER BY created_at
	FOR UPDATE SKIP LOCKED
	LIMIT 1
)
RETURNING id, url, fetch_timeout_ms`, q.table, q.table)

	var (
		job       crawler.Job
		timeoutMs *int64
	)
	err := q.pool.QueryRow(ctx, query).Scan(&job.ID, &job.URL, &timeoutMs)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawler.Job{}, ErrEmpty
	}
	if err != nil {
		return crawler.Job{}, fmt.Errorf("claim job: %w", err)
	}
	if timeoutMs != nil && *timeoutMs > 0 {
		job.FetchTimeout = time.Duration(*timeoutMs) * time.Millisecond
	}
	return job, nil
}

// Complete writes the classified result back onto the job row.
func (q *Queue) Complete(ctx context.Context, result crawler.JobResult) error {
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1,
	emails = $2,
	facebook_urls = $3,
	pages_crawled = $4,
	needs_rendering = $5,
	message = $6,
	finished_at = NOW()
WHERE id = $7`, q.table)

	tag, err := q.pool.Exec(ctx, query,
		string(result.Status),
		result.Outcome.Emails,
		result.Outcome.FacebookURLs,
		result.Outcome.PagesCrawled,
		result.Outcome.NeedsRendering,
		result.Message,
		result.Job.ID,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete job: no row for id %q", result.Job.ID)
	}
	return nil
}
