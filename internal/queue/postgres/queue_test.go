package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/contact-crawler/internal/crawler"
)

func newMockQueue(t *testing.T) (*Queue, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	q, err := NewWithPool(mock, Config{Table: "crawl_jobs", PollInterval: 50 * time.Millisecond})
	require.NoError(t, err)
	return q, mock
}

func TestDequeueClaimsPendingJob(t *testing.T) {
	t.Parallel()

	q, mock := newMockQueue(t)
	mock.ExpectQuery("UPDATE crawl_jobs SET status = 'running'").
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "fetch_timeout_ms"}).
			AddRow("job-1", "https://acme.com/", nil))

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, "https://acme.com/", job.URL)
	require.Zero(t, job.FetchTimeout, "NULL timeout leaves the worker default")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDequeueCarriesFetchTimeoutOverride(t *testing.T) {
	t.Parallel()

	q, mock := newMockQueue(t)
	timeoutMs := int64(15000)
	mock.ExpectQuery("UPDATE crawl_jobs SET status = 'running'").
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "fetch_timeout_ms"}).
			AddRow("job-2", "https://slow.example/", &timeoutMs))

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 15*time.Second, job.FetchTimeout)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDequeueWaitsWhenEmpty(t *testing.T) {
	t.Parallel()

	q, mock := newMockQueue(t)
	mock.ExpectQuery("UPDATE crawl_jobs SET status = 'running'").
		WillReturnError(pgx.ErrNoRows)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteWritesResultRow(t *testing.T) {
	t.Parallel()

	q, mock := newMockQueue(t)

	result := crawler.JobResult{
		Job:    crawler.Job{ID: "job-1", URL: "https://acme.com/"},
		Status: crawler.StatusCompleted,
		Outcome: crawler.CrawlOutcome{
			Success:      true,
			Emails:       []string{"info@acme.com"},
			FacebookURLs: []string{"https://facebook.com/acme"},
			PagesCrawled: 4,
		},
	}
	mock.ExpectExec("UPDATE crawl_jobs").
		WithArgs(
			"completed",
			[]string{"info@acme.com"},
			[]string{"https://facebook.com/acme"},
			4,
			false,
			"",
			"job-1",
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, q.Complete(context.Background(), result))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteMissingRowErrors(t *testing.T) {
	t.Parallel()

	q, mock := newMockQueue(t)
	mock.ExpectExec("UPDATE crawl_jobs").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), "ghost",
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := q.Complete(context.Background(), crawler.JobResult{
		Job:    crawler.Job{ID: "ghost"},
		Status: crawler.StatusError,
	})
	require.ErrorContains(t, err, "no row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueInsertsPendingRow(t *testing.T) {
	t.Parallel()

	q, mock := newMockQueue(t)
	mock.ExpectExec("INSERT INTO crawl_jobs").
		WithArgs("job-1", "https://acme.com/", (*int64)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, q.Enqueue(context.Background(), crawler.Job{
		ID:  "job-1",
		URL: "https://acme.com/",
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueStoresFetchTimeout(t *testing.T) {
	t.Parallel()

	q, mock := newMockQueue(t)
	mock.ExpectExec("INSERT INTO crawl_jobs").
		WithArgs("job-2", "https://slow.example/", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, q.Enqueue(context.Background(), crawler.Job{
		ID:           "job-2",
		URL:          "https://slow.example/",
		FetchTimeout: 15 * time.Second,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolRejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, Config{Table: "jobs; DROP TABLE jobs"})
	require.Error(t, err)
}
