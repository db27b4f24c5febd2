// Package sqlite persists finished crawl graphs to a local SQLite
// database so runs can be compared or re-analyzed later.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/websightdev/websight/internal/crawler"
)

// Store wraps the SQLite handle and owns the schema.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and initializes the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawls (
		crawl_id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		fetched INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		excluded INTEGER NOT NULL,
		truncated INTEGER NOT NULL,
		discovered INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pages (
		page_id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		state TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		fail_reason TEXT NOT NULL DEFAULT '',
		discovery_parent TEXT NOT NULL DEFAULT '',
		depth INTEGER NOT NULL,
		in_degree INTEGER NOT NULL,
		fetched_at TIMESTAMP,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (crawl_id) REFERENCES crawls(crawl_id),
		UNIQUE(crawl_id, url)
	);

	CREATE TABLE IF NOT EXISTS links (
		link_id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id INTEGER NOT NULL,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		FOREIGN KEY (crawl_id) REFERENCES crawls(crawl_id),
		UNIQUE(crawl_id, source, target)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_crawl ON pages(crawl_id);
	CREATE INDEX IF NOT EXISTS idx_links_crawl ON links(crawl_id);
	CREATE INDEX IF NOT EXISTS idx_links_target ON links(crawl_id, target);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

// SaveCrawl writes the snapshot, its referrer edges, and the summary in
// one transaction and returns the new crawl ID.
func (s *Store) SaveCrawl(ctx context.Context, snapshot crawler.Snapshot, summary crawler.Summary, finishedAt time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO crawls (seed, fetched, failed, excluded, truncated, discovered, duration_ms, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, snapshot.Seed, summary.Fetched, summary.Failed, summary.Excluded,
		summary.Truncated, summary.Discovered, summary.Duration.Milliseconds(), finishedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert crawl: %w", err)
	}
	crawlID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("crawl id: %w", err)
	}

	pageStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (crawl_id, url, state, status_code, fail_reason, discovery_parent, depth, in_degree, fetched_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare page insert: %w", err)
	}
	defer pageStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO links (crawl_id, source, target) VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for _, url := range snapshot.URLs() {
		rec := snapshot.Pages[url]
		var fetchedAt any
		if !rec.FetchedAt.IsZero() {
			fetchedAt = rec.FetchedAt.UTC()
		}
		if _, err := pageStmt.ExecContext(ctx, crawlID, rec.URL, string(rec.State),
			rec.StatusCode, rec.FailReason, rec.DiscoveryParent, rec.Depth,
			rec.InDegree, fetchedAt, rec.DurationMs); err != nil {
			return 0, fmt.Errorf("insert page %s: %w", rec.URL, err)
		}
		for _, source := range rec.ReferrerList() {
			if _, err := linkStmt.ExecContext(ctx, crawlID, source, rec.URL); err != nil {
				return 0, fmt.Errorf("insert link %s -> %s: %w", source, rec.URL, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit crawl: %w", err)
	}
	return crawlID, nil
}

// LoadCrawl reads a stored crawl back into a snapshot and summary.
func (s *Store) LoadCrawl(ctx context.Context, crawlID int64) (crawler.Snapshot, crawler.Summary, error) {
	var (
		snapshot   = crawler.Snapshot{Pages: make(map[string]crawler.PageRecord)}
		summary    crawler.Summary
		durationMs int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT seed, fetched, failed, excluded, truncated, discovered, duration_ms
		FROM crawls WHERE crawl_id = ?
	`, crawlID).Scan(&snapshot.Seed, &summary.Fetched, &summary.Failed,
		&summary.Excluded, &summary.Truncated, &summary.Discovered, &durationMs)
	if err != nil {
		return crawler.Snapshot{}, crawler.Summary{}, fmt.Errorf("load crawl %d: %w", crawlID, err)
	}
	summary.Seed = snapshot.Seed
	summary.Duration = time.Duration(durationMs) * time.Millisecond

	rows, err := s.db.QueryContext(ctx, `
		SELECT url, state, status_code, fail_reason, discovery_parent, depth, in_degree, fetched_at, duration_ms
		FROM pages WHERE crawl_id = ?
	`, crawlID)
	if err != nil {
		return crawler.Snapshot{}, crawler.Summary{}, fmt.Errorf("load pages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec       crawler.PageRecord
			state     string
			fetchedAt sql.NullTime
		)
		if err := rows.Scan(&rec.URL, &state, &rec.StatusCode, &rec.FailReason,
			&rec.DiscoveryParent, &rec.Depth, &rec.InDegree, &fetchedAt, &rec.DurationMs); err != nil {
			return crawler.Snapshot{}, crawler.Summary{}, fmt.Errorf("scan page: %w", err)
		}
		rec.State = crawler.FetchState(state)
		if fetchedAt.Valid {
			rec.FetchedAt = fetchedAt.Time.UTC()
		}
		rec.Referrers = make(map[string]struct{})
		snapshot.Pages[rec.URL] = rec
	}
	if err := rows.Err(); err != nil {
		return crawler.Snapshot{}, crawler.Summary{}, fmt.Errorf("iterate pages: %w", err)
	}

	linkRows, err := s.db.QueryContext(ctx, `
		SELECT source, target FROM links WHERE crawl_id = ?
	`, crawlID)
	if err != nil {
		return crawler.Snapshot{}, crawler.Summary{}, fmt.Errorf("load links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var source, target string
		if err := linkRows.Scan(&source, &target); err != nil {
			return crawler.Snapshot{}, crawler.Summary{}, fmt.Errorf("scan link: %w", err)
		}
		if rec, ok := snapshot.Pages[target]; ok {
			rec.Referrers[source] = struct{}{}
			snapshot.Pages[target] = rec
		}
	}
	if err := linkRows.Err(); err != nil {
		return crawler.Snapshot{}, crawler.Summary{}, fmt.Errorf("iterate links: %w", err)
	}

	return snapshot, summary, nil
}
