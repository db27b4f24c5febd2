package report

import (
	"sort"

	"github.com/websightdev/websight/internal/crawler"
)

// commonNavShare is the fraction of total pages that must link to a
// page before it counts as site-wide navigation (header/footer links).
const commonNavShare = 0.05

// isolatedMaxInDegree is the highest in-degree an isolated page may
// have.
const isolatedMaxInDegree = 2

// RankedPage pairs a URL with its in-degree for ranked listings.
type RankedPage struct {
	URL      string `json:"url"`
	InDegree int    `json:"in_degree"`
}

// BrokenLink describes a page that failed to fetch and who links to it.
type BrokenLink struct {
	URL       string   `json:"url"`
	Reason    string   `json:"reason"`
	Referrers []string `json:"referrers"`
}

// Analysis holds the derived views of a crawl used by the HTML report.
type Analysis struct {
	// Categories counts pages per top-level site section.
	Categories map[string]int `json:"categories"`
	// CommonNav lists pages linked from at least 5% of all pages,
	// sorted by in-degree descending.
	CommonNav []RankedPage `json:"common_nav"`
	// Isolated lists fetched pages (seed excluded) with in-degree of
	// two or less, sorted by in-degree ascending.
	Isolated []RankedPage `json:"isolated"`
	// Broken lists pages whose fetch failed, with their referrers.
	Broken []BrokenLink `json:"broken"`
}

// Analyze derives categories, common navigation, isolated pages, and
// broken links from the snapshot.
func (r *Report) Analyze() Analysis {
	pages := r.pages()
	a := Analysis{
		Categories: make(map[string]int, 16),
		CommonNav:  []RankedPage{},
		Isolated:   []RankedPage{},
		Broken:     []BrokenLink{},
	}

	threshold := float64(len(pages)) * commonNavShare
	for _, rec := range pages {
		a.Categories[Categorize(rec.URL)]++

		if float64(rec.InDegree) >= threshold {
			a.CommonNav = append(a.CommonNav, RankedPage{URL: rec.URL, InDegree: rec.InDegree})
		}
		if rec.State == crawler.StateFetched && rec.URL != r.snapshot.Seed && rec.InDegree <= isolatedMaxInDegree {
			a.Isolated = append(a.Isolated, RankedPage{URL: rec.URL, InDegree: rec.InDegree})
		}
		if rec.State == crawler.StateFailed {
			a.Broken = append(a.Broken, BrokenLink{
				URL:       rec.URL,
				Reason:    rec.FailReason,
				Referrers: sortedReferrers(rec),
			})
		}
	}

	sort.SliceStable(a.CommonNav, func(i, j int) bool {
		return a.CommonNav[i].InDegree > a.CommonNav[j].InDegree
	})
	sort.SliceStable(a.Isolated, func(i, j int) bool {
		return a.Isolated[i].InDegree < a.Isolated[j].InDegree
	})

	return a
}
