package crawler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mapFetcher serves canned results keyed by canonical URL. Unknown
// URLs fail with a 404 FetchError.
type mapFetcher struct {
	mu    sync.Mutex
	pages map[string][]string
	fail  map[string]error
	delay time.Duration
	calls []string
}

func newMapFetcher(pages map[string][]string) *mapFetcher {
	return &mapFetcher{pages: pages, fail: make(map[string]error)}
}

func (m *mapFetcher) Fetch(_ context.Context, rawURL string) (FetchResult, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.calls = append(m.calls, rawURL)
	links, ok := m.pages[rawURL]
	err := m.fail[rawURL]
	m.mu.Unlock()

	if err != nil {
		return FetchResult{}, err
	}
	if !ok {
		return FetchResult{}, &FetchError{Kind: ErrKindHTTPError, Code: 404}
	}
	return FetchResult{
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Links:       links,
		Duration:    5 * time.Millisecond,
	}, nil
}

func (m *mapFetcher) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestEngine(t *testing.T, cfg EngineConfig, fetcher Fetcher) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, fetcher, nil, nil, zap.NewNop())
	require.NoError(t, err)
	return engine
}

func TestEngine_BuildsLinkGraph(t *testing.T) {
	t.Parallel()

	// Seed links to /a and /b; /a links to /b.
	fetcher := newMapFetcher(map[string][]string{
		"https://ex.com/":  {"/a", "/b"},
		"https://ex.com/a": {"/b"},
		"https://ex.com/b": {},
	})
	engine := newTestEngine(t, EngineConfig{Seed: "https://ex.com/", Workers: 4}, fetcher)

	graph, summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.Fetched)
	require.Zero(t, summary.Failed)

	seed, _ := graph.Get("https://ex.com/")
	require.Equal(t, 0, seed.InDegree)
	require.Equal(t, 0, seed.Depth)

	a, _ := graph.Get("https://ex.com/a")
	require.Equal(t, 1, a.InDegree)
	require.Equal(t, map[string]struct{}{"https://ex.com/": {}}, a.Referrers)

	b, _ := graph.Get("https://ex.com/b")
	require.Equal(t, 2, b.InDegree)
	require.Contains(t, b.Referrers, "https://ex.com/")
	require.Contains(t, b.Referrers, "https://ex.com/a")
}

func TestEngine_FetchFailureDoesNotAbortCrawl(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher(map[string][]string{
		"https://ex.com/":   {"/c", "/ok"},
		"https://ex.com/ok": {},
	})
	// /c is unknown to the fetcher and returns http 404.
	engine := newTestEngine(t, EngineConfig{Seed: "https://ex.com/", Workers: 2}, fetcher)

	graph, summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Fetched)
	require.Equal(t, 1, summary.Failed)

	c, ok := graph.Get("https://ex.com/c")
	require.True(t, ok)
	require.Equal(t, StateFailed, c.State)
	require.Equal(t, 404, c.StatusCode)
	require.Equal(t, "http 404", c.FailReason)
	require.Equal(t, 1, c.InDegree, "failed pages keep their in-degree")
}

func TestEngine_RespectsPageBudget(t *testing.T) {
	t.Parallel()

	links := make([]string, 5)
	pages := map[string][]string{}
	for i := range links {
		links[i] = fmt.Sprintf("/p%d", i)
		pages[fmt.Sprintf("https://ex.com/p%d", i)] = nil
	}
	pages["https://ex.com/"] = links

	fetcher := newMapFetcher(pages)
	engine := newTestEngine(t, EngineConfig{Seed: "https://ex.com/", Workers: 1, MaxPages: 2}, fetcher)

	graph, summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, fetcher.fetchCount(), "dispatches never exceed the budget")
	require.Equal(t, 2, summary.Fetched+summary.Failed)
	require.Equal(t, 4, summary.Truncated)
	require.Equal(t, 6, graph.Len(), "truncated pages still have records")
}

func TestEngine_BFSDepthInvariant(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher(map[string][]string{
		"https://ex.com/":    {"/l1a", "/l1b"},
		"https://ex.com/l1a": {"/l2"},
		"https://ex.com/l1b": {"/l2", "/l1a"},
		"https://ex.com/l2":  {"/l3"},
		"https://ex.com/l3":  {},
	})
	engine := newTestEngine(t, EngineConfig{Seed: "https://ex.com/", Workers: 3}, fetcher)

	graph, _, err := engine.Run(context.Background())
	require.NoError(t, err)

	snap := graph.Snapshot()
	for url, rec := range snap.Pages {
		if url == snap.Seed {
			require.Zero(t, rec.Depth)
			require.Empty(t, rec.DiscoveryParent)
			continue
		}
		parent, ok := snap.Pages[rec.DiscoveryParent]
		require.True(t, ok, "parent of %s missing", url)
		require.Equal(t, parent.Depth+1, rec.Depth, "depth invariant broken for %s", url)
	}
}

func TestEngine_OffDomainLinksAreReferencedNotFetched(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher(map[string][]string{
		"https://ex.com/": {"https://other.com/away", "/in"},
		"https://ex.com/in": {},
	})
	engine := newTestEngine(t, EngineConfig{Seed: "https://ex.com/", Workers: 2}, fetcher)

	graph, summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Fetched)

	away, ok := graph.Get("https://other.com/away")
	require.True(t, ok)
	require.Equal(t, StatePending, away.State, "off-domain pages are never fetched")
	require.Equal(t, 1, away.InDegree)

	snap := graph.Snapshot()
	for url, rec := range snap.Pages {
		if rec.State == StateFetched {
			require.Equal(t, "ex.com", Host(url))
		}
	}
}

func TestEngine_CountsExcludedLinks(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher(map[string][]string{
		"https://ex.com/": {"/ok", "mailto:x@ex.com", "/img/logo.png", "/doc.pdf"},
		"https://ex.com/ok": {},
	})
	engine := newTestEngine(t, EngineConfig{Seed: "https://ex.com/", Workers: 1}, fetcher)

	graph, summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.Excluded)
	_, ok := graph.Get("https://ex.com/doc.pdf")
	require.False(t, ok, "excluded resources never become graph nodes")
}

func TestEngine_DuplicateLinksCountOnce(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher(map[string][]string{
		"https://ex.com/":    {"/dup", "/dup", "/dup#frag", "/dup?"},
		"https://ex.com/dup": {},
	})
	engine := newTestEngine(t, EngineConfig{Seed: "https://ex.com/", Workers: 1}, fetcher)

	graph, _, err := engine.Run(context.Background())
	require.NoError(t, err)

	dup, ok := graph.Get("https://ex.com/dup")
	require.True(t, ok)
	require.Equal(t, 1, dup.InDegree)
}

func TestEngine_WallClockCeilingReturnsPartialGraph(t *testing.T) {
	t.Parallel()

	pages := map[string][]string{"https://ex.com/": nil}
	var links []string
	for i := 0; i < 50; i++ {
		links = append(links, fmt.Sprintf("/p%d", i))
		pages[fmt.Sprintf("https://ex.com/p%d", i)] = nil
	}
	pages["https://ex.com/"] = links

	fetcher := newMapFetcher(pages)
	fetcher.delay = 30 * time.Millisecond
	engine := newTestEngine(t, EngineConfig{
		Seed:    "https://ex.com/",
		Workers: 1,
		Timeout: 100 * time.Millisecond,
	}, fetcher)

	start := time.Now()
	graph, summary, err := engine.Run(context.Background())
	require.NoError(t, err, "timeout is a normal termination, not an error")
	require.Less(t, time.Since(start), 2*time.Second)

	require.NotNil(t, graph)
	require.Positive(t, summary.Fetched)
	require.Positive(t, summary.Truncated, "unfinished work is reported as truncated")

	// Nothing may be left permanently in-flight.
	snap := graph.Snapshot()
	for _, rec := range snap.Pages {
		require.Contains(t, []FetchState{StatePending, StateFetched, StateFailed}, rec.State)
	}
}

func TestEngine_InvalidSeed(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher(nil)
	engine := newTestEngine(t, EngineConfig{Seed: "mailto:root@ex.com", Workers: 1}, fetcher)
	_, _, err := engine.Run(context.Background())
	require.ErrorIs(t, err, ErrRejected)
}

// recordingObserver captures engine notifications for assertions.
type recordingObserver struct {
	mu        sync.Mutex
	started   int
	completed int
	finished  []Summary
}

func (o *recordingObserver) CrawlStarted(string)    {}
func (o *recordingObserver) FetchStarted(string, int) {
	o.mu.Lock()
	o.started++
	o.mu.Unlock()
}
func (o *recordingObserver) FetchCompleted(string, int, int, time.Duration, error) {
	o.mu.Lock()
	o.completed++
	o.mu.Unlock()
}
func (o *recordingObserver) LinkDiscovered(string, string) {}
func (o *recordingObserver) CrawlFinished(s Summary) {
	o.mu.Lock()
	o.finished = append(o.finished, s)
	o.mu.Unlock()
}

func TestEngine_NotifiesObserver(t *testing.T) {
	t.Parallel()

	fetcher := newMapFetcher(map[string][]string{
		"https://ex.com/":  {"/a"},
		"https://ex.com/a": {},
	})
	obs := &recordingObserver{}
	engine, err := NewEngine(EngineConfig{Seed: "https://ex.com/", Workers: 2}, fetcher, nil, obs, zap.NewNop())
	require.NoError(t, err)

	_, summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, 2, obs.started)
	require.Equal(t, 2, obs.completed)
	require.Len(t, obs.finished, 1)
	require.Equal(t, summary, obs.finished[0])
}
