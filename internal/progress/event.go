// Package progress defines the event stream emitted while a crawl runs.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage marks which crawl milestone an Event records.
type Stage string

// Supported progress stages.
const (
	StageCrawlStart Stage = "CRAWL_START"
	StageCrawlDone  Stage = "CRAWL_DONE"
	StageFetchStart Stage = "FETCH_START"
	StageFetchDone  Stage = "FETCH_DONE"
	StageLinkFound  Stage = "LINK_FOUND"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for fetch completions.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event is a single crawl progress record. Fields beyond RunID, TS and
// Stage are stage-dependent; Validate documents which combinations are
// required.
type Event struct {
	// RunID identifies the crawl run this event belongs to.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage names the milestone.
	Stage Stage
	// URL is the page the event concerns.
	URL string
	// Source is the referring page for LINK_FOUND events.
	Source string
	// Depth is the BFS depth for fetch events.
	Depth int
	// StatusClass groups the HTTP response code for FETCH_DONE.
	StatusClass StatusClass
	// Dur is the fetch latency for FETCH_DONE and the total wall time
	// for CRAWL_DONE.
	Dur time.Duration
	// Note carries short free-form context such as a failure reason.
	Note string
}

// Validate checks the stage-dependent field requirements.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageCrawlStart, StageCrawlDone:
	case StageFetchStart:
		if e.URL == "" {
			return errors.New("fetch start requires url")
		}
	case StageFetchDone:
		if e.URL == "" {
			return errors.New("fetch done requires url")
		}
		if e.StatusClass == "" {
			return errors.New("fetch done requires status class")
		}
	case StageLinkFound:
		if e.URL == "" || e.Source == "" {
			return errors.New("link found requires url and source")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// ClassifyStatus groups an HTTP status code into a StatusClass. Code 0
// (transport failures) maps to StatusOther.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
