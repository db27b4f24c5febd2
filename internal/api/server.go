// Package api exposes the HTTP status interface for a crawl run.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/websightdev/websight/internal/crawler"
	"github.com/websightdev/websight/internal/metrics"
)

// Phase describes where the tracked crawl currently is.
type Phase string

// Crawl phases reported by the status endpoint.
const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseFinished Phase = "finished"
)

// Server serves health, metrics, and read-only crawl state over HTTP.
// It doubles as a crawler.Observer so the engine keeps it current
// while the crawl runs; the full graph becomes available once the run
// finishes and SetResult is called.
type Server struct {
	router chi.Router
	logger *zap.Logger

	mu       sync.Mutex
	phase    Phase
	seed     string
	started  time.Time
	fetched  int
	failed   int
	links    int
	summary  crawler.Summary
	snapshot *crawler.Snapshot
}

// NewServer builds the router. logger may be nil.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger: logger,
		phase:  PhaseIdle,
	}

	metrics.Init()

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.getStatus)
		r.Get("/summary", s.getSummary)
		r.Get("/graph", s.getGraph)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("status server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}

// SetResult publishes the finished graph for the /graph and /summary
// endpoints.
func (s *Server) SetResult(snapshot crawler.Snapshot, summary crawler.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &snapshot
	s.summary = summary
	s.phase = PhaseFinished
}

// CrawlStarted implements crawler.Observer.
func (s *Server) CrawlStarted(seed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseRunning
	s.seed = seed
	s.started = time.Now().UTC()
	s.fetched, s.failed, s.links = 0, 0, 0
}

// FetchStarted implements crawler.Observer.
func (s *Server) FetchStarted(string, int) {}

// FetchCompleted implements crawler.Observer.
func (s *Server) FetchCompleted(_ string, _, _ int, _ time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failed++
		return
	}
	s.fetched++
}

// LinkDiscovered implements crawler.Observer.
func (s *Server) LinkDiscovered(string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links++
}

// CrawlFinished implements crawler.Observer.
func (s *Server) CrawlFinished(summary crawler.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
	s.phase = PhaseFinished
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Phase     Phase  `json:"phase"`
	Seed      string `json:"seed,omitempty"`
	Fetched   int    `json:"fetched"`
	Failed    int    `json:"failed"`
	Links     int    `json:"links_discovered"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := statusResponse{
		Phase:   s.phase,
		Seed:    s.seed,
		Fetched: s.fetched,
		Failed:  s.failed,
		Links:   s.links,
	}
	if s.phase == PhaseRunning {
		resp.ElapsedMs = time.Since(s.started).Milliseconds()
	}
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSummary(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	phase := s.phase
	summary := s.summary
	s.mu.Unlock()

	if phase != PhaseFinished {
		s.writeError(w, http.StatusNotFound, "no finished crawl")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

type pageEntry struct {
	crawler.PageRecord
	Referrers []string `json:"referrers"`
}

type graphResponse struct {
	Seed  string      `json:"seed"`
	Pages []pageEntry `json:"pages"`
}

func (s *Server) getGraph(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	snapshot := s.snapshot
	s.mu.Unlock()

	if snapshot == nil {
		s.writeError(w, http.StatusNotFound, "no finished crawl")
		return
	}

	resp := graphResponse{Seed: snapshot.Seed, Pages: make([]pageEntry, 0, len(snapshot.Pages))}
	for _, url := range snapshot.URLs() {
		rec := snapshot.Pages[url]
		refs := rec.ReferrerList()
		sort.Strings(refs)
		resp.Pages = append(resp.Pages, pageEntry{PageRecord: rec, Referrers: refs})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
