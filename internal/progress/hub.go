package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBufferSize  = 2048
	defaultBatchSize   = 256
	defaultFlushEvery  = 250 * time.Millisecond
	defaultSinkTimeout = 5 * time.Second
)

// Config tunes Hub buffering and batching. Zero values fall back to
// the package defaults.
type Config struct {
	BufferSize  int
	BatchSize   int
	FlushEvery  time.Duration
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

// Hub buffers crawl events and fans them out to its sinks in batches.
// Emit never blocks the caller; when the buffer is full events are
// counted as dropped instead.
type Hub struct {
	cfg    Config
	sinks  []Sink
	events chan Event
	stop   chan struct{}
	done   chan struct{}
	logger *zap.Logger

	dropped atomic.Int64

	stopOnce sync.Once
	stopped  atomic.Bool
}

// NewHub starts the background flush loop over the given sinks.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushEvery
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		events: make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: cfg.Logger,
	}
	go h.loop()
	return h
}

// Emit enqueues an event without blocking. Invalid events are logged at
// debug level and discarded.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.stopped.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	select {
	case h.events <- evt:
	default:
		h.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close drains the buffer, flushes the sinks a final time, and waits
// for the flush loop to exit or ctx to expire.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.stopOnce.Do(func() {
		h.stopped.Store(true)
		close(h.stop)
	})
	select {
	case <-h.done:
	case <-ctx.Done():
		return fmt.Errorf("progress hub close: %w", ctx.Err())
	}
	for _, sink := range h.sinks {
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
	if n := h.dropped.Load(); n > 0 {
		h.logger.Warn("progress events dropped due to backpressure", zap.Int64("dropped", n))
	}
	return nil
}

func (h *Hub) loop() {
	defer close(h.done)

	batch := make([]Event, 0, h.cfg.BatchSize)
	ticker := time.NewTicker(h.cfg.FlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-h.events:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.BatchSize {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			h.flush(batch)
			batch = batch[:0]
		case <-h.stop:
			// Drain whatever is buffered, then flush one last time.
			for {
				select {
				case evt := <-h.events:
					batch = append(batch, evt)
					if len(batch) >= h.cfg.BatchSize {
						h.flush(batch)
						batch = batch[:0]
					}
				default:
					h.flush(batch)
					return
				}
			}
		}
	}
}

func (h *Hub) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}
	out := append([]Event(nil), batch...)
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, out); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
}
