package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{
	"url", "state", "status_code", "category", "depth",
	"discovery_parent", "in_degree", "fail_reason", "duration_ms",
}

// WriteCSV writes one row per discovered page. Referrer sets are left
// to the JSON export; CSV carries the scalar columns only.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range r.pages() {
		statusCode := ""
		if rec.StatusCode != 0 {
			statusCode = strconv.Itoa(rec.StatusCode)
		}
		row := []string{
			rec.URL,
			string(rec.State),
			statusCode,
			Categorize(rec.URL),
			strconv.Itoa(rec.Depth),
			rec.DiscoveryParent,
			strconv.Itoa(rec.InDegree),
			rec.FailReason,
			strconv.FormatInt(rec.DurationMs, 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
