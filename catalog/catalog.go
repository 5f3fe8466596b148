// Package catalog records run history in SQLite: one row per site run, one
// row per persisted record. The JSONL files in the sink stay the canonical
// output; the catalog exists for cross-run accounting and queries.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    site        TEXT NOT NULL,
    search_term TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'running',
    pages       INTEGER NOT NULL DEFAULT 0,
    records     INTEGER NOT NULL DEFAULT 0,
    duplicates  INTEGER NOT NULL DEFAULT 0,
    started_at  TEXT NOT NULL,
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS records (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    url        TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    price      TEXT NOT NULL DEFAULT '',
    page       INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
CREATE INDEX IF NOT EXISTS idx_records_url ON records(url);
CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);
`

// Catalog is the run-history store.
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at path with WAL and a busy
// timeout applied, then ensures the schema. Use ":memory:" in tests.
func Open(path string) (*Catalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("catalog: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("catalog: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error { return c.db.Close() }

// BeginRun registers a new run for a site and returns its ID.
func (c *Catalog) BeginRun(ctx context.Context, site, searchTerm string) (string, error) {
	id := uuid.NewString()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (id, site, search_term, started_at) VALUES (?, ?, ?, ?)`,
		id, site, searchTerm, now())
	if err != nil {
		return "", fmt.Errorf("catalog: begin run: %w", err)
	}
	return id, nil
}

// AddRecord attaches one persisted record to a run.
func (c *Catalog) AddRecord(ctx context.Context, runID, url, title, price string, page int) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO records (run_id, url, title, price, page, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, url, title, price, page, now())
	if err != nil {
		return fmt.Errorf("catalog: add record: %w", err)
	}
	return nil
}

// FinishRun closes a run with its final status and counters.
func (c *Catalog) FinishRun(ctx context.Context, runID, status string, pages, records, duplicates int) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, pages = ?, records = ?, duplicates = ?, finished_at = ? WHERE id = ?`,
		status, pages, records, duplicates, now(), runID)
	if err != nil {
		return fmt.Errorf("catalog: finish run: %w", err)
	}
	return nil
}

// SiteStats aggregates run history for one site.
type SiteStats struct {
	Site    string
	Runs    int
	Records int
}

// Stats returns per-site aggregates across all runs.
func (c *Catalog) Stats(ctx context.Context) ([]SiteStats, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT r.site, COUNT(DISTINCT r.id), COUNT(rec.id)
		FROM runs r
		LEFT JOIN records rec ON rec.run_id = r.id
		GROUP BY r.site
		ORDER BY r.site`)
	if err != nil {
		return nil, fmt.Errorf("catalog: stats: %w", err)
	}
	defer rows.Close()

	var out []SiteStats
	for rows.Next() {
		var s SiteStats
		if err := rows.Scan(&s.Site, &s.Runs, &s.Records); err != nil {
			return nil, fmt.Errorf("catalog: scan stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
