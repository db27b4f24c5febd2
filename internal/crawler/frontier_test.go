package crawler

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrontier_FIFOOrder(t *testing.T) {
	t.Parallel()

	f := NewFrontier("ex.com", 0)
	require.True(t, f.Offer("https://ex.com/1", 1))
	require.True(t, f.Offer("https://ex.com/2", 1))
	require.True(t, f.Offer("https://ex.com/3", 2))

	for i := 1; i <= 3; i++ {
		url, _, ok := f.Next()
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("https://ex.com/%d", i), url)
		f.MarkDone(url)
	}

	_, _, ok := f.Next()
	require.False(t, ok)
	require.Equal(t, CrawlFinished, f.State())
}

func TestFrontier_RejectsOffDomainAndDuplicates(t *testing.T) {
	t.Parallel()

	f := NewFrontier("ex.com", 0)
	require.False(t, f.Offer("https://other.com/", 1))
	require.True(t, f.Offer("https://ex.com/a", 1))
	require.False(t, f.Offer("https://ex.com/a", 2), "already queued")

	url, _, ok := f.Next()
	require.True(t, ok)
	require.False(t, f.Offer(url, 3), "in-flight URLs stay seen")
	f.MarkDone(url)
	require.False(t, f.Offer(url, 3), "done URLs stay seen")
}

func TestFrontier_BudgetStopsDispatch(t *testing.T) {
	t.Parallel()

	f := NewFrontier("ex.com", 2)
	for i := 0; i < 6; i++ {
		require.True(t, f.Offer(fmt.Sprintf("https://ex.com/p%d", i), 1))
	}

	first, _, ok := f.Next()
	require.True(t, ok)
	second, _, ok := f.Next()
	require.True(t, ok)
	f.MarkDone(first)
	f.MarkDone(second)

	_, _, ok = f.Next()
	require.False(t, ok, "budget of 2 must stop the third dispatch")
	require.Equal(t, 2, f.Dispatched())
	require.Equal(t, 4, f.Truncated())
	require.Equal(t, CrawlFinished, f.State())
}

func TestFrontier_OfferRefusedOnceBudgetSpent(t *testing.T) {
	t.Parallel()

	f := NewFrontier("ex.com", 1)
	require.True(t, f.Offer("https://ex.com/a", 0))
	url, _, ok := f.Next()
	require.True(t, ok)

	// Budget is exhausted by the single dispatch; later discoveries are
	// referrer-only and never enter the queue.
	require.False(t, f.Offer("https://ex.com/late", 1))
	f.MarkDone(url)
	require.Equal(t, 0, f.Truncated())
}

func TestFrontier_StopDrainsInFlight(t *testing.T) {
	t.Parallel()

	f := NewFrontier("ex.com", 0)
	f.Offer("https://ex.com/a", 0)
	f.Offer("https://ex.com/b", 1)

	url, _, ok := f.Next()
	require.True(t, ok)

	f.Stop()
	require.Equal(t, CrawlDraining, f.State())

	_, _, ok = f.Next()
	require.False(t, ok, "no dispatch after stop")

	f.MarkDone(url)
	require.Equal(t, CrawlFinished, f.State())
	require.Equal(t, 1, f.Truncated())
}

func TestFrontier_ConcurrentWorkersDrainCleanly(t *testing.T) {
	t.Parallel()

	f := NewFrontier("ex.com", 0)
	const total = 200
	for i := 0; i < total; i++ {
		f.Offer(fmt.Sprintf("https://ex.com/p%d", i), 1)
	}

	var processed sync.Map
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				url, _, ok := f.Next()
				if !ok {
					return
				}
				processed.Store(url, true)
				f.MarkDone(url)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not drain the frontier")
	}

	count := 0
	processed.Range(func(_, _ any) bool { count++; return true })
	require.Equal(t, total, count)
	require.Equal(t, total, f.Dispatched())
	require.Equal(t, CrawlFinished, f.State())
}
