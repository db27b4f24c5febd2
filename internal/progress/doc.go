// Package progress carries the crawl event stream. The engine reports
// lifecycle milestones through an Observer adapter; the Hub batches
// them on a background goroutine and fans them out to pluggable sinks
// such as structured logs or Prometheus collectors.
package progress
