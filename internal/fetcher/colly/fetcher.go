// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/websightdev/websight/internal/crawler"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher performs a single HTTP GET per call and collects every
// a[href] from the response. It is stateless between calls and safe
// for concurrent use: each Fetch clones the base collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true

	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch retrieves rawURL and returns its status, content type, and the
// raw hrefs found in the document. Non-HTML responses and HTTP error
// statuses come back as *crawler.FetchError; no retries happen here.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawler.FetchResult, error) {
	var (
		result   crawler.FetchResult
		links    []string
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if href := strings.TrimSpace(e.Attr("href")); href != "" {
			links = append(links, href)
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= 400 {
			fetchErr = &crawler.FetchError{Kind: crawler.ErrKindHTTPError, Code: r.StatusCode, Err: err}
			return
		}
		fetchErr = classifyTransportError(err)
	})

	if err := f.visit(ctx, collector, rawURL, &fetchErr); err != nil {
		return crawler.FetchResult{}, err
	}
	if !isHTML(result.ContentType) {
		return crawler.FetchResult{}, &crawler.FetchError{
			Kind: crawler.ErrKindUnsupportedContent,
			Err:  fmt.Errorf("content type %q", result.ContentType),
		}
	}

	result.Links = links
	result.Duration = time.Since(start)
	return result, nil
}

func (f *Fetcher) visit(ctx context.Context, collector *colly.Collector, rawURL string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		// The OnError callback classifies response-level failures;
		// Visit's return value duplicates those, so the classified
		// error wins when both exist.
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return classifyTransportError(err)
		}
		return nil
	}
}

func classifyTransportError(err error) error {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return &crawler.FetchError{Kind: crawler.ErrKindTimeout, Err: err}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &crawler.FetchError{Kind: crawler.ErrKindConnectionRefused, Err: err}
	default:
		return &crawler.FetchError{Kind: crawler.ErrKindOther, Err: err}
	}
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
