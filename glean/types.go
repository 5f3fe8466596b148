package glean

import "github.com/gleanware/glean/fields"

// Record is one extracted content record.
type Record = fields.Record

// Status values for a completed site run.
const (
	StatusDone    = "done"    // pagination exhausted normally
	StatusPartial = "partial" // aborted early, records persisted so far kept
	StatusFailed  = "failed"  // nothing useful persisted
)

// Summary reports one site run.
type Summary struct {
	Site       string `json:"site"`
	RunID      string `json:"run_id,omitempty"`
	Status     string `json:"status"`
	Pages      int    `json:"pages"`
	Records    int    `json:"records"`
	Duplicates int    `json:"duplicates"`
}
