package progress

import (
	"time"

	"github.com/google/uuid"

	"github.com/websightdev/websight/internal/crawler"
)

// CrawlObserver bridges crawler lifecycle callbacks onto the progress
// event stream. Each observer carries the run ID for one crawl.
type CrawlObserver struct {
	runID   uuid.UUID
	emitter Emitter
}

// NewCrawlObserver mints a run ID and binds it to the emitter.
func NewCrawlObserver(emitter Emitter) *CrawlObserver {
	return &CrawlObserver{
		runID:   uuid.New(),
		emitter: emitter,
	}
}

// RunID returns the crawl run identifier carried on every event.
func (o *CrawlObserver) RunID() uuid.UUID {
	return o.runID
}

func (o *CrawlObserver) CrawlStarted(seed string) {
	o.emitter.Emit(Event{
		RunID: o.runID,
		TS:    time.Now().UTC(),
		Stage: StageCrawlStart,
		URL:   seed,
	})
}

func (o *CrawlObserver) FetchStarted(url string, depth int) {
	o.emitter.Emit(Event{
		RunID: o.runID,
		TS:    time.Now().UTC(),
		Stage: StageFetchStart,
		URL:   url,
		Depth: depth,
	})
}

func (o *CrawlObserver) FetchCompleted(url string, depth, statusCode int, duration time.Duration, err error) {
	evt := Event{
		RunID:       o.runID,
		TS:          time.Now().UTC(),
		Stage:       StageFetchDone,
		URL:         url,
		Depth:       depth,
		StatusClass: ClassifyStatus(statusCode),
		Dur:         duration,
	}
	if err != nil {
		evt.Note = err.Error()
	}
	o.emitter.Emit(evt)
}

func (o *CrawlObserver) LinkDiscovered(target, source string) {
	o.emitter.Emit(Event{
		RunID:  o.runID,
		TS:     time.Now().UTC(),
		Stage:  StageLinkFound,
		URL:    target,
		Source: source,
	})
}

func (o *CrawlObserver) CrawlFinished(summary crawler.Summary) {
	o.emitter.Emit(Event{
		RunID: o.runID,
		TS:    time.Now().UTC(),
		Stage: StageCrawlDone,
		URL:   summary.Seed,
		Dur:   summary.Duration,
	})
}
