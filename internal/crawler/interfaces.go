package crawler

import (
	"context"
	"time"
)

// Fetcher fetches one page and reports a tagged outcome. Implementations
// must enforce the request timeout and release every acquired resource on
// all exit paths, including errors.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) FetchOutcome
}

// Queue hands ready jobs to workers and accepts their classified results.
type Queue interface {
	Dequeue(ctx context.Context) (Job, error)
	Complete(ctx context.Context, result JobResult) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Archive stores raw page snapshots for offline analysis and returns a URI.
type Archive interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Hasher computes digests for snapshot naming and deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
