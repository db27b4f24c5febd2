// Package crawler implements the breadth-first crawl engine: URL
// normalization, the frontier scheduler, the shared link graph, and the
// orchestrator that drives a bounded pool of fetch workers.
package crawler
