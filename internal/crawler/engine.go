package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EngineConfig holds the settings for one crawl run. It is decoupled
// from Viper so the engine stays testable without a config file.
type EngineConfig struct {
	Seed string
	// Domain restricts the crawl; empty means "host of the seed".
	Domain         string
	MaxPages       int
	Workers        int
	PerWorkerDelay time.Duration
	// Timeout is the wall-clock ceiling for the whole crawl; a safety
	// valve against infinite URL spaces. Zero disables it.
	Timeout time.Duration
}

// Engine ties the frontier, the link graph, and a pool of fetch
// workers together for a single crawl run. All crawl state lives on
// the Engine instance; independent crawls can run side by side.
type Engine struct {
	cfg      EngineConfig
	fetcher  Fetcher
	clock    Clock
	norm     Normalizer
	observer Observer
	logger   *zap.Logger

	excluded atomic.Int64
}

// NewEngine constructs an Engine. clock and observer may be nil.
func NewEngine(cfg EngineConfig, fetcher Fetcher, clock Clock, observer Observer, logger *zap.Logger) (*Engine, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if clock == nil {
		clock = systemClock{}
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		fetcher:  fetcher,
		clock:    clock,
		observer: observer,
		logger:   logger,
	}, nil
}

// Run crawls from the seed until the frontier drains, the page budget
// is spent, or the wall clock runs out. It always returns the graph it
// built, partial or not; per-page failures never abort the crawl.
func (e *Engine) Run(ctx context.Context) (*LinkGraph, Summary, error) {
	seed, err := e.norm.Normalize(e.cfg.Seed, nil)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("normalize seed %q: %w", e.cfg.Seed, err)
	}
	domain := e.cfg.Domain
	if domain == "" {
		domain = Host(seed)
	}
	if domain == "" {
		return nil, Summary{}, fmt.Errorf("seed %q has no host", e.cfg.Seed)
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	graph := NewLinkGraph(seed)
	graph.Ensure(seed, "", 0)
	frontier := NewFrontier(domain, e.cfg.MaxPages)
	frontier.Offer(seed, 0)

	e.observer.CrawlStarted(seed)
	e.logger.Info("crawl starting",
		zap.String("seed", seed),
		zap.String("domain", domain),
		zap.Int("workers", e.cfg.Workers),
		zap.Int("max_pages", e.cfg.MaxPages),
	)

	// The ceiling is checked cooperatively: Stop drains the frontier
	// but in-flight fetches finish so no record is stuck in-flight.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			frontier.Stop()
		case <-watchDone:
		}
	}()

	start := e.clock.Now()
	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e.runWorker(ctx, id, graph, frontier)
		}(i + 1)
	}
	wg.Wait()
	close(watchDone)

	summary := e.summarize(graph, frontier, seed, e.clock.Now().Sub(start))
	e.observer.CrawlFinished(summary)
	e.logger.Info("crawl finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("failed", summary.Failed),
		zap.Int("excluded", summary.Excluded),
		zap.Int("truncated", summary.Truncated),
		zap.Duration("duration", summary.Duration),
	)
	return graph, summary, nil
}

func (e *Engine) runWorker(ctx context.Context, id int, graph *LinkGraph, frontier *Frontier) {
	throttle := newPolitenessThrottle(e.cfg.PerWorkerDelay)
	for {
		if err := throttle.Wait(ctx); err != nil {
			// Crawl deadline hit while idling; the frontier watcher
			// stops dispatch, we just stop asking for work.
			return
		}
		target, depth, ok := frontier.Next()
		if !ok {
			return
		}
		e.processPage(ctx, graph, frontier, target, depth)
		frontier.MarkDone(target)

		e.logger.Debug("worker processed page",
			zap.Int("worker", id),
			zap.String("url", target),
			zap.Int("depth", depth),
		)
	}
}

func (e *Engine) processPage(ctx context.Context, graph *LinkGraph, frontier *Frontier, target string, depth int) {
	e.observer.FetchStarted(target, depth)

	// Once dispatched, a fetch is allowed to finish even when the crawl
	// deadline fires mid-flight.
	res, err := e.fetcher.Fetch(context.WithoutCancel(ctx), target)
	if err != nil {
		reason, code := classifyFetchError(err)
		graph.MarkFailed(target, reason, code, e.clock.Now())
		e.observer.FetchCompleted(target, depth, code, 0, err)
		e.logger.Warn("fetch failed",
			zap.String("url", target),
			zap.String("reason", reason),
		)
		return
	}

	graph.MarkFetched(target, res.StatusCode, e.clock.Now(), res.Duration)
	e.observer.FetchCompleted(target, depth, res.StatusCode, res.Duration, nil)

	base, parseErr := url.Parse(target)
	if parseErr != nil {
		return
	}
	for _, link := range dedupe(res.Links) {
		canonical, normErr := e.norm.Normalize(link, base)
		if normErr != nil {
			if errors.Is(normErr, ErrRejected) {
				e.excluded.Add(1)
			}
			continue
		}
		// Referrer bookkeeping applies to every in-page link, queued or
		// not: off-domain and over-budget targets still accumulate
		// in-degree because it measures linking intent.
		graph.AddReferrer(canonical, target, depth+1)
		e.observer.LinkDiscovered(canonical, target)
		frontier.Offer(canonical, depth+1)
	}
}

func (e *Engine) summarize(graph *LinkGraph, frontier *Frontier, seed string, elapsed time.Duration) Summary {
	snap := graph.Snapshot()
	summary := Summary{
		Seed:       seed,
		Excluded:   int(e.excluded.Load()),
		Truncated:  frontier.Truncated(),
		Discovered: len(snap.Pages),
		Duration:   elapsed,
	}
	for _, rec := range snap.Pages {
		switch rec.State {
		case StateFetched:
			summary.Fetched++
		case StateFailed:
			summary.Failed++
		}
	}
	return summary
}

func classifyFetchError(err error) (reason string, code int) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason(), fe.Code
	}
	return err.Error(), 0
}

// dedupe collapses repeated hrefs within one page so a page linking to
// the same target five times counts as a single edge.
func dedupe(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := links[:0:0]
	for _, link := range links {
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
