package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/websightdev/websight/internal/progress"
)

// PrometheusSink exports crawl progress as Prometheus metrics. It owns
// the collectors for crawl lifecycle, fetch outcomes, and link
// discovery.
type PrometheusSink struct {
	crawlsStarted  prometheus.Counter
	crawlsFinished prometheus.Counter
	crawlRuntime   prometheus.Histogram

	fetchesTotal  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	linksFound    prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided
// registry; nil falls back to the default registerer.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		crawlsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "websight_crawls_started_total",
			Help: "Total crawl runs started.",
		}),
		crawlsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "websight_crawls_finished_total",
			Help: "Total crawl runs finished.",
		}),
		crawlRuntime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "websight_crawl_runtime_seconds",
			Help:    "Wall time per finished crawl.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "websight_fetches_total",
			Help: "Fetch completions partitioned by status class.",
		}, []string{"status_class"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "websight_fetch_duration_seconds",
			Help:    "Fetch latency partitioned by status class.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"status_class"}),
		linksFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "websight_links_discovered_total",
			Help: "Total hyperlinks discovered, including duplicates.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.crawlsStarted,
		s.crawlsFinished,
		s.crawlRuntime,
		s.fetchesTotal,
		s.fetchDuration,
		s.linksFound,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Safe for concurrent
// use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageCrawlStart:
			s.crawlsStarted.Inc()
		case progress.StageCrawlDone:
			s.crawlsFinished.Inc()
			if evt.Dur > 0 {
				s.crawlRuntime.Observe(evt.Dur.Seconds())
			}
		case progress.StageFetchDone:
			class := string(evt.StatusClass)
			if class == "" {
				class = string(progress.StatusOther)
			}
			s.fetchesTotal.WithLabelValues(class).Inc()
			if evt.Dur > 0 {
				s.fetchDuration.WithLabelValues(class).Observe(evt.Dur.Seconds())
			}
		case progress.StageLinkFound:
			s.linksFound.Inc()
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
