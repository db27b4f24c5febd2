package crawler

import (
	"sort"
	"sync"
	"time"
)

// LinkGraph records every discovered URL, its fetch outcome, and its
// inbound links. It is the only mutable state shared between fetch
// workers; every mutation runs under one mutex so that
// "ensure record + add referrer + recompute in-degree" is atomic even
// when several workers discover the same target at once.
//
// A graph lives for exactly one crawl run. Once the engine declares the
// crawl finished the graph is handed to consumers read-only.
type LinkGraph struct {
	mu    sync.Mutex
	seed  string
	pages map[string]*PageRecord
}

// NewLinkGraph creates an empty graph for a crawl rooted at seed.
func NewLinkGraph(seed string) *LinkGraph {
	return &LinkGraph{
		seed:  seed,
		pages: make(map[string]*PageRecord),
	}
}

// Seed returns the canonical seed URL.
func (g *LinkGraph) Seed() string { return g.seed }

// Ensure creates the PageRecord for url if it does not exist yet,
// stamping discovery parent and depth exactly once. Later callers with
// a different parent leave both untouched: the first observation wins,
// which is what makes the recorded tree the BFS tree.
func (g *LinkGraph) Ensure(url, parent string, depth int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureLocked(url, parent, depth)
}

func (g *LinkGraph) ensureLocked(url, parent string, depth int) *PageRecord {
	if rec, ok := g.pages[url]; ok {
		return rec
	}
	rec := &PageRecord{
		URL:             url,
		State:           StatePending,
		Referrers:       make(map[string]struct{}),
		DiscoveryParent: parent,
		Depth:           depth,
	}
	g.pages[url] = rec
	return rec
}

// AddReferrer records that source links to target, creating target's
// record when needed so no referrer set ever names a missing page.
// The operation is idempotent: a repeated (source, target) edge neither
// grows the set nor bumps the in-degree.
func (g *LinkGraph) AddReferrer(target, source string, depth int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec := g.ensureLocked(target, source, depth)
	if _, dup := rec.Referrers[source]; dup {
		return
	}
	rec.Referrers[source] = struct{}{}
	rec.InDegree = len(rec.Referrers)
}

// MarkFetched transitions url to Fetched with the final status code.
func (g *LinkGraph) MarkFetched(url string, code int, fetchedAt time.Time, duration time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rec, ok := g.pages[url]; ok {
		rec.State = StateFetched
		rec.StatusCode = code
		rec.FetchedAt = fetchedAt
		rec.DurationMs = duration.Milliseconds()
	}
}

// MarkFailed transitions url to Failed. code is the HTTP status when
// the failure was an HTTP error, zero for transport-level failures.
func (g *LinkGraph) MarkFailed(url, reason string, code int, fetchedAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rec, ok := g.pages[url]; ok {
		rec.State = StateFailed
		rec.FailReason = reason
		rec.StatusCode = code
		rec.FetchedAt = fetchedAt
	}
}

// Get returns a copy of the record for url, or false when unknown.
func (g *LinkGraph) Get(url string) (PageRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.pages[url]
	if !ok {
		return PageRecord{}, false
	}
	return copyRecord(rec), true
}

// Len returns the number of known pages.
func (g *LinkGraph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pages)
}

// Snapshot returns a deep copy of the graph keyed by canonical URL,
// sorted iteration left to the caller. Consumers (reports, the status
// API) work on snapshots so the live graph is never exposed mid-crawl.
func (g *LinkGraph) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	pages := make(map[string]PageRecord, len(g.pages))
	for url, rec := range g.pages {
		pages[url] = copyRecord(rec)
	}
	return Snapshot{Seed: g.seed, Pages: pages}
}

func copyRecord(rec *PageRecord) PageRecord {
	cp := *rec
	cp.Referrers = make(map[string]struct{}, len(rec.Referrers))
	for ref := range rec.Referrers {
		cp.Referrers[ref] = struct{}{}
	}
	return cp
}

// Snapshot is an immutable view of a LinkGraph handed to consumers.
type Snapshot struct {
	Seed  string
	Pages map[string]PageRecord
}

// URLs returns the page keys in sorted order for deterministic output.
func (s Snapshot) URLs() []string {
	out := make([]string, 0, len(s.Pages))
	for url := range s.Pages {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}
