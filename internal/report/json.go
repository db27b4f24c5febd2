package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/websightdev/websight/internal/crawler"
)

type jsonPage struct {
	crawler.PageRecord
	Category  string   `json:"category"`
	Referrers []string `json:"referrers"`
}

type jsonDocument struct {
	Seed        string          `json:"seed"`
	GeneratedAt time.Time       `json:"generated_at"`
	TotalPages  int             `json:"total_pages"`
	Summary     crawler.Summary `json:"summary"`
	Pages       []jsonPage      `json:"pages"`
	Analysis    Analysis        `json:"analysis"`
}

// WriteJSON streams the full crawl dataset as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	doc := jsonDocument{
		Seed:        r.snapshot.Seed,
		GeneratedAt: r.generatedAt,
		TotalPages:  len(r.snapshot.Pages),
		Summary:     r.summary,
		Pages:       make([]jsonPage, 0, len(r.snapshot.Pages)),
		Analysis:    r.Analyze(),
	}
	for _, rec := range r.pages() {
		doc.Pages = append(doc.Pages, jsonPage{
			PageRecord: rec,
			Category:   Categorize(rec.URL),
			Referrers:  sortedReferrers(rec),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report json: %w", err)
	}
	return nil
}
