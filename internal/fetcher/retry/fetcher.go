// Package retry wraps a Fetcher with bounded retries for transient
// failures.
package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/websightdev/websight/internal/crawler"
)

// Config tunes the retry behavior.
type Config struct {
	// MaxRetries is the number of re-attempts after the first failure.
	MaxRetries int
	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration
}

// Fetcher retries transient fetch failures with exponential backoff.
// Permanent failures (4xx, unsupported content) pass through
// immediately.
type Fetcher struct {
	inner  crawler.Fetcher
	cfg    Config
	logger *zap.Logger
}

// New wraps inner. logger may be nil.
func New(inner crawler.Fetcher, cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{inner: inner, cfg: cfg, logger: logger}
}

// Fetch implements crawler.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawler.FetchResult, error) {
	var lastErr error
	backoff := f.cfg.BackoffBase
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return crawler.FetchResult{}, ctx.Err()
			}
			backoff *= 2
			f.logger.Debug("retrying fetch",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
			)
		}
		res, err := f.inner.Fetch(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable(err) {
			return crawler.FetchResult{}, err
		}
	}
	return crawler.FetchResult{}, lastErr
}

// retryable reports whether another attempt could plausibly succeed:
// timeouts, refused connections, and 5xx responses qualify.
func retryable(err error) bool {
	var fe *crawler.FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind {
	case crawler.ErrKindTimeout, crawler.ErrKindConnectionRefused:
		return true
	case crawler.ErrKindHTTPError:
		return fe.Code >= 500
	default:
		return false
	}
}
