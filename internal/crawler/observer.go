package crawler

import "time"

// Observer receives crawl lifecycle notifications. The engine never
// blocks on an observer, so implementations must be fast or hand off
// to their own buffering (the progress hub does the latter).
type Observer interface {
	CrawlStarted(seed string)
	FetchStarted(url string, depth int)
	FetchCompleted(url string, depth, statusCode int, duration time.Duration, err error)
	LinkDiscovered(target, source string)
	CrawlFinished(summary Summary)
}

// MultiObserver fans notifications out to several observers in order.
func MultiObserver(obs ...Observer) Observer {
	return multiObserver(obs)
}

type multiObserver []Observer

func (m multiObserver) CrawlStarted(seed string) {
	for _, o := range m {
		o.CrawlStarted(seed)
	}
}

func (m multiObserver) FetchStarted(url string, depth int) {
	for _, o := range m {
		o.FetchStarted(url, depth)
	}
}

func (m multiObserver) FetchCompleted(url string, depth, statusCode int, duration time.Duration, err error) {
	for _, o := range m {
		o.FetchCompleted(url, depth, statusCode, duration, err)
	}
}

func (m multiObserver) LinkDiscovered(target, source string) {
	for _, o := range m {
		o.LinkDiscovered(target, source)
	}
}

func (m multiObserver) CrawlFinished(summary Summary) {
	for _, o := range m {
		o.CrawlFinished(summary)
	}
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) CrawlStarted(string)                                   {}
func (NopObserver) FetchStarted(string, int)                              {}
func (NopObserver) FetchCompleted(string, int, int, time.Duration, error) {}
func (NopObserver) LinkDiscovered(string, string)                         {}
func (NopObserver) CrawlFinished(Summary)                                 {}
