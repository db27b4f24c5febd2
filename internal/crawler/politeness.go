package crawler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// politenessThrottle spaces out dispatches from a single worker. Each
// worker owns its own throttle, so the request rate scales with worker
// count and no synchronization is needed.
type politenessThrottle struct {
	limiter *rate.Limiter
}

func newPolitenessThrottle(delay time.Duration) *politenessThrottle {
	if delay <= 0 {
		return &politenessThrottle{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	// Burst 1 makes the first dispatch immediate and every subsequent
	// one wait out the configured delay.
	return &politenessThrottle{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the worker may dispatch again.
func (t *politenessThrottle) Wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("politeness wait: %w", err)
	}
	return nil
}
