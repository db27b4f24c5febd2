package report

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/websightdev/websight/internal/crawler"
)

type categoryCount struct {
	Name  string
	Count int
}

type htmlData struct {
	Seed        string
	GeneratedAt time.Time
	Summary     crawler.Summary
	Categories  []categoryCount
	CommonNav   []RankedPage
	Isolated    []RankedPage
	Broken      []BrokenLink
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Crawl Report - {{.Seed}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 0; background: #f7fafc; color: #2d3748; }
header { background: #2b6cb0; color: #fff; padding: 24px 32px; }
header h1 { margin: 0 0 4px; font-size: 1.4em; }
header p { margin: 0; opacity: 0.8; font-size: 0.9em; }
main { padding: 24px 32px; max-width: 1100px; margin: 0 auto; }
section { background: #fff; border-radius: 8px; padding: 20px 24px; margin-bottom: 24px; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
h2 { margin-top: 0; font-size: 1.1em; border-bottom: 2px solid #edf2f7; padding-bottom: 8px; }
.cards { display: flex; flex-wrap: wrap; gap: 16px; }
.card { flex: 1 1 120px; background: #edf2f7; border-radius: 6px; padding: 12px 16px; text-align: center; }
.card .num { font-size: 1.6em; font-weight: 700; color: #2b6cb0; }
.card .label { font-size: 0.8em; color: #718096; }
table { width: 100%; border-collapse: collapse; font-size: 0.9em; }
th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid #edf2f7; }
th { color: #718096; font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.empty { color: #718096; padding: 8px 0; }
.note { color: #718096; font-size: 0.85em; margin-top: -8px; }
</style>
</head>
<body>
<header>
<h1>Crawl Report</h1>
<p>{{.Seed}} &middot; generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</p>
</header>
<main>

<section>
<h2>Summary</h2>
<div class="cards">
<div class="card"><div class="num">{{.Summary.Discovered}}</div><div class="label">discovered</div></div>
<div class="card"><div class="num">{{.Summary.Fetched}}</div><div class="label">fetched</div></div>
<div class="card"><div class="num">{{.Summary.Failed}}</div><div class="label">failed</div></div>
<div class="card"><div class="num">{{.Summary.Excluded}}</div><div class="label">excluded links</div></div>
<div class="card"><div class="num">{{.Summary.Truncated}}</div><div class="label">truncated</div></div>
</div>
</section>

<section>
<h2>Categories</h2>
{{if .Categories}}
<table>
<tr><th>Section</th><th class="num">Pages</th></tr>
{{range .Categories}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td></tr>
{{end}}
</table>
{{else}}<div class="empty">No pages discovered.</div>{{end}}
</section>

<section>
<h2>Common Navigation</h2>
<p class="note">Pages linked from at least 5% of all pages, typically header and footer links.</p>
{{if .CommonNav}}
<table>
<tr><th>URL</th><th class="num">In-degree</th></tr>
{{range .CommonNav}}<tr><td>{{.URL}}</td><td class="num">{{.InDegree}}</td></tr>
{{end}}
</table>
{{else}}<div class="empty">None.</div>{{end}}
</section>

<section>
<h2>Isolated Pages</h2>
<p class="note">Fetched pages reachable from two or fewer other pages.</p>
{{if .Isolated}}
<table>
<tr><th>URL</th><th class="num">In-degree</th></tr>
{{range .Isolated}}<tr><td>{{.URL}}</td><td class="num">{{.InDegree}}</td></tr>
{{end}}
</table>
{{else}}<div class="empty">None.</div>{{end}}
</section>

<section>
<h2>Broken Links</h2>
{{if .Broken}}
<table>
<tr><th>URL</th><th>Reason</th><th class="num">Linked from</th></tr>
{{range .Broken}}<tr><td>{{.URL}}</td><td>{{.Reason}}</td><td class="num">{{len .Referrers}}</td></tr>
{{end}}
</table>
{{else}}<div class="empty">None.</div>{{end}}
</section>

</main>
</body>
</html>
`))

// WriteHTML renders the self-contained HTML report.
func (r *Report) WriteHTML(w io.Writer) error {
	analysis := r.Analyze()

	categories := make([]categoryCount, 0, len(analysis.Categories))
	for name, count := range analysis.Categories {
		categories = append(categories, categoryCount{Name: name, Count: count})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Name < categories[j].Name
	})

	data := htmlData{
		Seed:        r.snapshot.Seed,
		GeneratedAt: r.generatedAt,
		Summary:     r.summary,
		Categories:  categories,
		CommonNav:   analysis.CommonNav,
		Isolated:    analysis.Isolated,
		Broken:      analysis.Broken,
	}
	if err := htmlTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
