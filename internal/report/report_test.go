package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/websightdev/websight/internal/crawler"
)

const testSeed = "https://ex.com/"

// buildFixture creates a graph with a site-wide nav page, thirty leaf
// pages, and one broken link.
func buildFixture(t *testing.T) *Report {
	t.Helper()

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	graph := crawler.NewLinkGraph(testSeed)
	graph.Ensure(testSeed, "", 0)
	graph.MarkFetched(testSeed, 200, now, 10*time.Millisecond)

	for i := 1; i <= 30; i++ {
		page := fmt.Sprintf("https://ex.com/p%02d", i)
		graph.AddReferrer(page, testSeed, 1)
		graph.MarkFetched(page, 200, now, 5*time.Millisecond)
		graph.AddReferrer("https://ex.com/nav", page, 2)
	}
	graph.MarkFetched("https://ex.com/nav", 200, now, 5*time.Millisecond)

	graph.AddReferrer("https://ex.com/missing", testSeed, 1)
	graph.MarkFailed("https://ex.com/missing", "http 404", 404, now)

	summary := crawler.Summary{
		Seed:       testSeed,
		Fetched:    32,
		Failed:     1,
		Discovered: graph.Len(),
		Duration:   3 * time.Second,
	}
	return New(graph.Snapshot(), summary, now)
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://ex.com/", "top"},
		{"https://ex.com", "top"},
		{"https://ex.com/pricing", "pricing"},
		{"https://ex.com/pricing/plans", "pricing"},
		{"https://ex.com/docs/api/v2?x=1", "docs"},
		{"://bad", "unknown"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Categorize(tt.url), tt.url)
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	r := buildFixture(t)
	a := r.Analyze()

	// 33 pages total, threshold 1.65: only the nav page (in-degree 30)
	// crosses it.
	require.Len(t, a.CommonNav, 1)
	require.Equal(t, "https://ex.com/nav", a.CommonNav[0].URL)
	require.Equal(t, 30, a.CommonNav[0].InDegree)

	// Every leaf page has in-degree 1; the seed and the failed page are
	// excluded.
	require.Len(t, a.Isolated, 30)
	for _, p := range a.Isolated {
		require.NotEqual(t, testSeed, p.URL)
		require.LessOrEqual(t, p.InDegree, 2)
	}

	require.Len(t, a.Broken, 1)
	require.Equal(t, "https://ex.com/missing", a.Broken[0].URL)
	require.Equal(t, "http 404", a.Broken[0].Reason)
	require.Equal(t, []string{testSeed}, a.Broken[0].Referrers)

	require.Equal(t, 1, a.Categories["top"])
	require.Equal(t, 1, a.Categories["nav"])
	require.Equal(t, 1, a.Categories["p01"])
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, buildFixture(t).WriteJSON(&buf))

	var doc struct {
		Seed       string `json:"seed"`
		TotalPages int    `json:"total_pages"`
		Pages      []struct {
			URL       string   `json:"url"`
			State     string   `json:"state"`
			Category  string   `json:"category"`
			InDegree  int      `json:"in_degree"`
			Referrers []string `json:"referrers"`
		} `json:"pages"`
		Analysis Analysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, testSeed, doc.Seed)
	require.Equal(t, 33, doc.TotalPages)
	require.Len(t, doc.Pages, 33)

	// Pages are sorted by URL; the seed sorts first.
	require.Equal(t, testSeed, doc.Pages[0].URL)
	require.Equal(t, "fetched", doc.Pages[0].State)
	require.Equal(t, "top", doc.Pages[0].Category)
	require.Len(t, doc.Analysis.CommonNav, 1)
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, buildFixture(t).WriteCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 34) // header + 33 pages
	require.Equal(t, csvHeader, rows[0])

	byURL := make(map[string][]string, len(rows)-1)
	for _, row := range rows[1:] {
		byURL[row[0]] = row
	}
	missing := byURL["https://ex.com/missing"]
	require.NotNil(t, missing)
	require.Equal(t, "failed", missing[1])
	require.Equal(t, "404", missing[2])
	require.Equal(t, "missing", missing[3])
	require.Equal(t, testSeed, missing[5])
	require.Equal(t, "1", missing[6])
	require.Equal(t, "http 404", missing[7])
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, buildFixture(t).WriteHTML(&buf))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	require.Contains(t, out, testSeed)
	require.Contains(t, out, "https://ex.com/nav")
	require.Contains(t, out, "https://ex.com/missing")
	require.Contains(t, out, "Broken Links")
}
