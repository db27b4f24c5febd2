// Package crawler defines core types shared across the crawl engine.
package crawler

import (
	"strconv"
	"time"
)

// FetchState represents the fetch outcome recorded on a PageRecord.
type FetchState string

// Fetch states a PageRecord moves through. A record is created Pending
// and transitions to Fetched or Failed exactly once.
const (
	StatePending FetchState = "pending"
	StateFetched FetchState = "fetched"
	StateFailed  FetchState = "failed"
)

// PageRecord holds everything known about one canonical URL.
type PageRecord struct {
	URL        string              `json:"url"`
	State      FetchState          `json:"state"`
	StatusCode int                 `json:"status_code,omitempty"`
	FailReason string              `json:"fail_reason,omitempty"`
	Referrers  map[string]struct{} `json:"-"`
	InDegree   int                 `json:"in_degree"`
	// DiscoveryParent is the URL whose page first surfaced this one. It
	// reconstructs the BFS tree and is distinct from Referrers, which
	// accumulates every page that links here.
	DiscoveryParent string    `json:"discovery_parent,omitempty"`
	Depth           int       `json:"depth"`
	FetchedAt       time.Time `json:"fetched_at,omitempty"`
	DurationMs      int64     `json:"duration_ms,omitempty"`
}

// ReferrerList returns the referrer set as a slice. Order is not
// significant; callers that need determinism sort it themselves.
func (p *PageRecord) ReferrerList() []string {
	out := make([]string, 0, len(p.Referrers))
	for ref := range p.Referrers {
		out = append(out, ref)
	}
	return out
}

// FetchResult is what a Fetcher returns for a successfully completed
// HTTP exchange. Links carries raw hrefs exactly as found in the page;
// normalization happens in the engine.
type FetchResult struct {
	StatusCode  int
	ContentType string
	Links       []string
	Duration    time.Duration
}

// FetchErrorKind classifies fetch failures for reporting.
type FetchErrorKind string

// Fetch error kinds surfaced on PageRecord.FailReason.
const (
	ErrKindTimeout            FetchErrorKind = "timeout"
	ErrKindConnectionRefused  FetchErrorKind = "connection_refused"
	ErrKindHTTPError          FetchErrorKind = "http_error"
	ErrKindUnsupportedContent FetchErrorKind = "unsupported_content"
	ErrKindOther              FetchErrorKind = "error"
)

// FetchError wraps a transport-level failure with its classification.
type FetchError struct {
	Kind FetchErrorKind
	Code int
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *FetchError) Unwrap() error { return e.Err }

// Reason renders the failure the way it is stored on a PageRecord.
func (e *FetchError) Reason() string {
	if e.Kind == ErrKindHTTPError && e.Code != 0 {
		return "http " + strconv.Itoa(e.Code)
	}
	return string(e.Kind)
}

// Summary reports the aggregate outcome of one crawl run.
type Summary struct {
	Seed       string        `json:"seed"`
	Fetched    int           `json:"fetched"`
	Failed     int           `json:"failed"`
	Excluded   int           `json:"excluded"`
	Truncated  int           `json:"truncated"`
	Discovered int           `json:"discovered"`
	Duration   time.Duration `json:"duration"`
}
