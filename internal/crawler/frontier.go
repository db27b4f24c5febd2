package crawler

import (
	"sync"
)

// urlState tracks the dispatch lifecycle of a queued URL. URLs that are
// never enqueued (off-domain, over-budget discoveries) have no state at
// all; they exist only as graph records.
type urlState int

const (
	stateQueued urlState = iota
	stateInFlight
	stateDone
)

// CrawlState is the global frontier lifecycle.
type CrawlState string

// Frontier lifecycle values.
const (
	CrawlRunning  CrawlState = "running"
	CrawlDraining CrawlState = "draining"
	CrawlFinished CrawlState = "finished"
)

type queueEntry struct {
	url   string
	depth int
}

// Frontier owns the pending/visited bookkeeping for one crawl: a strict
// FIFO queue (breadth-first, never depth-first, so shallow pages are
// discovered before deep ones), the per-URL dispatch states, the domain
// restriction, and the page-count budget.
//
// The budget counts dispatches: once maxPages URLs have moved to
// in-flight, no further dispatch happens, outstanding work is allowed
// to finish, and whatever is still queued is reported as truncated.
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	host     string
	maxPages int

	queue      []queueEntry
	states     map[string]urlState
	dispatched int
	inFlight   int
	state      CrawlState
}

// NewFrontier creates a frontier restricted to host. maxPages <= 0
// means no page budget.
func NewFrontier(host string, maxPages int) *Frontier {
	f := &Frontier{
		host:     host,
		maxPages: maxPages,
		states:   make(map[string]urlState),
		state:    CrawlRunning,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Offer enqueues a canonical URL for fetching if it is unseen, inside
// the target domain, and the budget is not already exhausted. It
// returns true when the URL was queued. A false return still leaves
// the caller free to record referrer edges; in-degree measures linking
// intent, not successful fetch.
func (f *Frontier) Offer(url string, depth int) bool {
	if Host(url) != f.host {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != CrawlRunning {
		return false
	}
	if f.budgetExhaustedLocked() {
		return false
	}
	if _, seen := f.states[url]; seen {
		return false
	}
	f.states[url] = stateQueued
	f.queue = append(f.queue, queueEntry{url: url, depth: depth})
	f.cond.Signal()
	return true
}

// Next blocks until a URL is ready for dispatch and transitions it to
// in-flight. It returns ok=false when the crawl is over for this
// worker: the budget is spent, the frontier was stopped, or the queue
// drained with nothing in flight.
func (f *Frontier) Next() (url string, depth int, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if f.state == CrawlFinished {
			return "", 0, false
		}
		if f.state == CrawlRunning && f.budgetExhaustedLocked() {
			f.beginDrainingLocked()
		}
		if f.state == CrawlDraining {
			if f.inFlight == 0 {
				f.finishLocked()
			}
			return "", 0, false
		}
		if len(f.queue) > 0 {
			entry := f.queue[0]
			f.queue = f.queue[1:]
			f.states[entry.url] = stateInFlight
			f.dispatched++
			f.inFlight++
			return entry.url, entry.depth, true
		}
		if f.inFlight == 0 {
			f.finishLocked()
			return "", 0, false
		}
		f.cond.Wait()
	}
}

// MarkDone transitions a dispatched URL to done. When the last
// in-flight fetch completes against an empty queue (or a draining
// frontier) the crawl finishes and all blocked workers wake up.
func (f *Frontier) MarkDone(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.states[url] == stateInFlight {
		f.states[url] = stateDone
		f.inFlight--
	}
	if f.inFlight == 0 && (f.state == CrawlDraining || len(f.queue) == 0) {
		f.finishLocked()
		return
	}
	// A completed fetch may have queued new work for idle workers.
	f.cond.Broadcast()
}

// Stop moves the frontier to draining: no new dispatch, in-flight work
// finishes normally. Used for the wall-clock safety valve.
func (f *Frontier) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == CrawlRunning {
		f.beginDrainingLocked()
	}
	if f.inFlight == 0 {
		f.finishLocked()
	}
}

// State reports the global crawl state.
func (f *Frontier) State() CrawlState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Truncated counts URLs still queued after the crawl finished, i.e.
// discovered inside the domain but never dispatched because the budget
// or the clock ran out.
func (f *Frontier) Truncated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Dispatched counts URLs that ever transitioned to in-flight. It never
// exceeds the configured page budget.
func (f *Frontier) Dispatched() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dispatched
}

// QueueLen reports the current queue length.
func (f *Frontier) QueueLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *Frontier) budgetExhaustedLocked() bool {
	return f.maxPages > 0 && f.dispatched >= f.maxPages
}

func (f *Frontier) beginDrainingLocked() {
	f.state = CrawlDraining
	f.cond.Broadcast()
}

func (f *Frontier) finishLocked() {
	f.state = CrawlFinished
	f.cond.Broadcast()
}
