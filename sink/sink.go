// Package sink persists records as JSON Lines, one file per site. Appends
// are line-atomic: a record is either fully on disk or absent, so an
// interrupted run leaves a valid file behind.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer appends records to per-site JSONL files under a directory.
type Writer struct {
	dir string
}

// New creates a Writer rooted at dir, creating it if needed.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sink: create output dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Append writes one record to the site's file. The file is opened in append
// mode per call so concurrent runs against different sites never contend and
// a crash loses at most the record in flight.
func (w *Writer) Append(site string, rec any) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink: marshal record: %w", err)
	}

	f, err := os.OpenFile(w.Path(site), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("sink: open %s: %w", w.Path(site), err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("sink: write record: %w", err)
	}
	return nil
}

// Path returns the JSONL file for a site.
func (w *Writer) Path(site string) string {
	return filepath.Join(w.dir, SiteName(site)+"_records.jsonl")
}

// SiteName reduces a URL or hostname to a filesystem-safe site label:
// scheme and www. stripped, path dropped, dots and colons flattened.
func SiteName(site string) string {
	s := site
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.NewReplacer(".", "_", ":", "_").Replace(s)
	if s == "" {
		return "site"
	}
	return s
}
