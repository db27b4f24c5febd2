package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves a single page and reports the outbound links it
// found. Implementations must be safe for concurrent use; the engine
// runs one Fetch per worker at a time but shares one Fetcher across
// all workers. Retry policy, if any, belongs to the implementation.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResult, error)
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}
