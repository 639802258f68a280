// Package memory provides queue implementations for local development.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/leadforge/contact-crawler/internal/crawler"
)

// Queue is a bounded in-memory queue with context-aware operations.
// Completed results are retained for inspection.
type Queue struct {
	ch chan crawler.Job

	mu      sync.Mutex
	closed  bool
	results []crawler.JobResult
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan crawler.Job, capacity),
	}
}

// Enqueue pushes a job into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, job crawler.Job) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- job:
		return nil
	}
}

// Dequeue pops the next job, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (crawler.Job, error) {
	select {
	case <-ctx.Done():
		return crawler.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case job, ok := <-q.ch:
		if !ok {
			return crawler.Job{}, errors.New("queue closed")
		}
		return job, nil
	}
}

// Complete records the classified result.
func (q *Queue) Complete(_ context.Context, result crawler.JobResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results = append(q.results, result)
	return nil
}

// Results returns the recorded completions.
func (q *Queue) Results() []crawler.JobResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]crawler.JobResult, len(q.results))
	copy(out, q.results)
	return out
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
