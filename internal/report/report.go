// Package report turns a finished crawl into analysis and export
// artifacts: JSON and CSV data dumps plus an HTML summary.
package report

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/websightdev/websight/internal/crawler"
)

// Report bundles one crawl's snapshot and summary for export.
type Report struct {
	snapshot    crawler.Snapshot
	summary     crawler.Summary
	generatedAt time.Time
}

// New builds a Report. generatedAt stamps the export artifacts.
func New(snapshot crawler.Snapshot, summary crawler.Summary, generatedAt time.Time) *Report {
	return &Report{
		snapshot:    snapshot,
		summary:     summary,
		generatedAt: generatedAt.UTC(),
	}
}

// Categorize maps a page URL to its top-level site section: the first
// path segment, or "top" for the root page.
func Categorize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "top"
	}
	if i := strings.Index(path, "/"); i >= 0 {
		return path[:i]
	}
	return path
}

// pages returns the records sorted by URL for deterministic output.
func (r *Report) pages() []crawler.PageRecord {
	out := make([]crawler.PageRecord, 0, len(r.snapshot.Pages))
	for _, u := range r.snapshot.URLs() {
		out = append(out, r.snapshot.Pages[u])
	}
	return out
}

func sortedReferrers(rec crawler.PageRecord) []string {
	refs := rec.ReferrerList()
	sort.Strings(refs)
	return refs
}
