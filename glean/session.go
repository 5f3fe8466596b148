// Package glean drives adaptive content-region discovery and pagination
// traversal over live rendered pages. A Session walks one site at a time:
// optional search bootstrap, per-page record-list discovery, per-record
// visit-extract-return, then click-verified pagination. A page-scoped URL
// ledger prevents duplicate persists within a page; collapsing duplicates
// across pages or runs is the dedup utility's job.
package glean

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gleanware/glean/catalog"
	"github.com/gleanware/glean/discover"
	"github.com/gleanware/glean/dom"
	"github.com/gleanware/glean/fallback"
	"github.com/gleanware/glean/fields"
	"github.com/gleanware/glean/paginate"
	"github.com/gleanware/glean/sink"
)

// Pacing between interactions. Vars so tests can collapse the waits.
var (
	// clickSettle is the pause after clicking into a record.
	clickSettle = 1 * time.Second
	// nudgeSettle follows the small scroll that triggers lazy content on
	// detail pages.
	nudgeSettle = 500 * time.Millisecond
)

// nudgeScroll is the small detail-page scroll distance in pixels.
const nudgeScroll = 300

// RecordSink persists extracted records.
type RecordSink interface {
	Append(site string, rec any) error
}

// RunCatalog records run history. All methods tolerate being skipped; the
// session treats a nil catalog as "no history".
type RunCatalog interface {
	BeginRun(ctx context.Context, site, searchTerm string) (string, error)
	AddRecord(ctx context.Context, runID, url, title, price string, page int) error
	FinishRun(ctx context.Context, runID, status string, pages, records, duplicates int) error
}

// FieldRecoverer recovers fields the deterministic extractor missed.
type FieldRecoverer interface {
	ExtractField(ctx context.Context, html string, field fallback.Field) (string, bool)
}

// Deps are the session's collaborators. Accessor and Sink are required;
// Catalog and Gateway may be nil.
type Deps struct {
	Accessor dom.Accessor
	Sink     RecordSink
	Catalog  RunCatalog
	Gateway  FieldRecoverer
	Logger   *slog.Logger
}

// Session traverses sites one at a time. It is not safe for concurrent use.
type Session struct {
	cfg       Config
	deps      Deps
	extractor *fields.Extractor
}

// NewSession creates a Session over an already-navigable accessor.
func NewSession(cfg Config, deps Deps) (*Session, error) {
	if deps.Accessor == nil {
		return nil, errors.New("glean: accessor is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("glean: sink is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	cfg.ApplyDefaults()
	return &Session{
		cfg:  cfg,
		deps: deps,
		extractor: fields.New(fields.Config{
			Logger: deps.Logger,
		}),
	}, nil
}

// page-level abort sentinels, internal to the traversal loop.
var (
	errAbortPage = errors.New("glean: page aborted")
	errSkip      = errors.New("glean: record skipped")
)

// Run traverses one site to completion. It always returns a Summary — a
// failed run still reports what was persisted before the failure — and an
// error only for faults that ended the run early.
func (s *Session) Run(ctx context.Context, site SiteConfig) (Summary, error) {
	log := s.deps.Logger.With("site", site.URL)
	acc := s.deps.Accessor
	sum := Summary{Site: site.URL, Status: StatusFailed}

	term := site.Search
	if term == "" {
		term = s.cfg.Search
	}

	if s.deps.Catalog != nil {
		runID, err := s.deps.Catalog.BeginRun(ctx, site.URL, term)
		if err != nil {
			log.Warn("glean: catalog unavailable, continuing without run history", "error", err)
		} else {
			sum.RunID = runID
		}
	}
	defer func() {
		if s.deps.Catalog != nil && sum.RunID != "" {
			if err := s.deps.Catalog.FinishRun(context.WithoutCancel(ctx), sum.RunID,
				sum.Status, sum.Pages, sum.Records, sum.Duplicates); err != nil {
				log.Warn("glean: closing run history failed", "error", err)
			}
		}
	}()

	if err := acc.Navigate(site.URL); err != nil {
		return sum, fmt.Errorf("glean: navigate %s: %w", site.URL, err)
	}
	if err := dom.Settle(ctx, s.cfg.Limits.SettleDelay); err != nil {
		return sum, err
	}

	if term != "" {
		if _, err := submitSearch(ctx, acc, term, s.cfg.Limits.SearchDelay, log); err != nil {
			return sum, err
		}
	}

	for page := 1; page <= s.cfg.Limits.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			sum.finish(StatusPartial)
			return sum, err
		}
		log.Info("glean: processing page", "page", page)

		if n := discover.ExpandLoadMore(ctx, acc, s.cfg.Limits.LoadMoreClicks,
			s.cfg.Limits.SettleDelay, log); n > 0 {
			log.Info("glean: expanded incremental listing", "clicks", n)
		}

		listing, ok, err := s.discoverListing(ctx)
		if err != nil {
			sum.finish(StatusPartial)
			return sum, err
		}
		if !ok {
			// No record list is not an error: the listing is exhausted or
			// undiscoverable, and the zero-record summary is the report.
			if page == 1 {
				log.Warn("glean: no record list found on entry page")
			}
			sum.finish(StatusDone)
			return sum, nil
		}
		sum.Pages = page

		persisted, dups, err := s.processPage(ctx, site.URL, sum.RunID, listing, page, log)
		sum.Records += persisted
		sum.Duplicates += dups
		if err != nil && !errors.Is(err, errAbortPage) {
			sum.finish(StatusPartial)
			return sum, err
		}
		if errors.Is(err, errAbortPage) {
			log.Warn("glean: page aborted, attempting pagination with partial results", "page", page)
		}

		// Never advance past the last page that will be processed.
		if page == s.cfg.Limits.MaxPages {
			break
		}

		nav := paginate.New(acc, paginate.Config{
			Settle: s.cfg.Limits.SettleDelay,
			Logger: log,
		})
		advanced, err := nav.Advance(ctx)
		if err != nil {
			sum.finish(StatusPartial)
			return sum, err
		}
		if !advanced {
			sum.finish(StatusDone)
			return sum, nil
		}
		if err := dom.Settle(ctx, s.cfg.Limits.SettleDelay); err != nil {
			sum.finish(StatusPartial)
			return sum, err
		}
	}

	sum.finish(StatusDone)
	return sum, nil
}

func (sum *Summary) finish(status string) {
	if status != StatusDone && sum.Records == 0 {
		sum.Status = StatusFailed
		return
	}
	sum.Status = status
}

func (s *Session) discoverListing(ctx context.Context) (*discover.Listing, bool, error) {
	return discover.Discover(ctx, s.deps.Accessor, discover.Config{
		MinClusterSize: s.cfg.Limits.MinClusterSize,
		ScrollRetries:  s.cfg.Limits.ScrollRetries,
		ScrollDelay:    s.cfg.Limits.ScrollDelay,
		Logger:         s.deps.Logger,
	})
}

// processPage visits every container of the discovered listing in order.
// Container handles go stale the moment a record visit navigates away, so
// each iteration re-resolves the container set by the winning signature.
// The dedup ledger is page-scoped: it suppresses re-listed records within
// this page only, and is dropped when the page ends.
// Returns counts of persisted records and ledger-deduplicated skips.
func (s *Session) processPage(ctx context.Context, site, runID string, listing *discover.Listing, page int, log *slog.Logger) (int, int, error) {
	acc := s.deps.Accessor
	persisted, dups := 0, 0
	ledger := make(map[string]struct{})

	containers, err := acc.Query(listing.Signature.Selector())
	if err != nil {
		return 0, 0, fmt.Errorf("glean: resolve containers: %w", err)
	}
	total := len(containers)
	if total > s.cfg.Limits.MaxRecordsPerPage {
		total = s.cfg.Limits.MaxRecordsPerPage
	}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return persisted, dups, err
		}

		link, ok := s.resolveLink(listing, i)
		if !ok {
			continue
		}
		if _, seen := ledger[link.Href]; seen {
			dups++
			continue
		}

		rec, err := s.visitRecord(ctx, link, log)
		switch {
		case errors.Is(err, errSkip):
			continue
		case errors.Is(err, errAbortPage):
			return persisted, dups, err
		case err != nil:
			return persisted, dups, err
		}

		if rec.URL == "" {
			log.Warn("glean: record discarded, no URL captured", "container", i, "href", link.Href)
			continue
		}
		if _, seen := ledger[rec.URL]; seen {
			dups++
			continue
		}

		if err := s.deps.Sink.Append(sink.SiteName(site), rec); err != nil {
			return persisted, dups, fmt.Errorf("glean: persist record: %w", err)
		}
		if s.deps.Catalog != nil && runID != "" {
			if err := s.deps.Catalog.AddRecord(ctx, runID, rec.URL, rec.Title, rec.Price, page); err != nil {
				log.Warn("glean: catalog record insert failed", "error", err)
			}
		}
		// Ledger entries only exist for records actually on disk, so a crash
		// between persist attempts never suppresses a record.
		ledger[rec.URL] = struct{}{}
		ledger[link.Href] = struct{}{}
		persisted++
		log.Info("glean: record persisted", "url", rec.URL, "title", rec.Title, "price", rec.Price)
	}
	return persisted, dups, nil
}

// resolveLink re-queries the winning signature's containers and extracts the
// i-th primary link. Index drift after DOM churn surfaces as a miss, never a
// wrong-record visit.
func (s *Session) resolveLink(listing *discover.Listing, i int) (discover.Link, bool) {
	containers, err := s.deps.Accessor.Query(listing.Signature.Selector())
	if err != nil || i >= len(containers) {
		return discover.Link{}, false
	}
	link, ok, err := discover.PrimaryLink(containers[i])
	if err != nil || !ok {
		return discover.Link{}, false
	}
	return link, true
}

// visitRecord clicks into one record, extracts its fields, and restores the
// listing context. Restoration is unconditional: whether the record opened
// in a popup or the same tab, and whether extraction succeeded or not, the
// accessor is returned to the listing before visitRecord exits. A failed
// restore poisons the rest of the page, so it surfaces as errAbortPage.
func (s *Session) visitRecord(ctx context.Context, link discover.Link, log *slog.Logger) (rec Record, err error) {
	acc := s.deps.Accessor

	mainHandle, herr := acc.ActiveHandle()
	if herr != nil {
		return rec, fmt.Errorf("glean: read active handle: %w", herr)
	}
	before, herr := acc.Handles()
	if herr != nil {
		return rec, fmt.Errorf("glean: read handles: %w", herr)
	}
	listingURL, herr := acc.URL()
	if herr != nil {
		return rec, fmt.Errorf("glean: read listing URL: %w", herr)
	}

	if cerr := link.Node.Click(); cerr != nil {
		switch {
		case errors.Is(cerr, dom.ErrBlocked):
			log.Warn("glean: record click intercepted, retrying via JS", "href", link.Href)
			if jerr := link.Node.ClickJS(); jerr != nil {
				log.Warn("glean: JS click failed, skipping record", "href", link.Href, "error", jerr)
				return rec, errSkip
			}
		case errors.Is(cerr, dom.ErrStale):
			log.Warn("glean: container went stale mid-page", "href", link.Href)
			return rec, errAbortPage
		default:
			log.Warn("glean: record click failed, skipping", "href", link.Href, "error", cerr)
			return rec, errSkip
		}
	}
	if serr := dom.Settle(ctx, clickSettle); serr != nil {
		return rec, serr
	}

	popup := newHandle(before, acc)
	if popup != "" {
		if aerr := acc.Activate(popup); aerr != nil {
			log.Warn("glean: switching to popup failed", "error", aerr)
			// Still close the orphan handle before giving up on the page.
			if cerr := acc.CloseHandle(popup); cerr != nil {
				log.Warn("glean: closing unreachable popup failed", "error", cerr)
			}
			return rec, errAbortPage
		}
	}

	defer func() {
		if rerr := s.restore(ctx, mainHandle, popup, listingURL); rerr != nil {
			log.Error("glean: restoring listing context failed", "error", rerr)
			err = errAbortPage
		}
	}()

	// A small scroll wakes lazy-rendered detail content before extraction.
	if serr := acc.ScrollBy(nudgeScroll); serr == nil {
		if serr := dom.Settle(ctx, nudgeSettle); serr != nil {
			return rec, serr
		}
	}

	rec = s.extractor.Extract(acc)
	s.recoverFields(ctx, &rec, log)
	return rec, nil
}

// recoverFields fills missing title and invalid price via the semantic
// gateway, when one is configured.
func (s *Session) recoverFields(ctx context.Context, rec *Record, log *slog.Logger) {
	if s.deps.Gateway == nil {
		return
	}
	needTitle := rec.Title == ""
	needPrice := !s.extractor.ValidPrice(rec.Price)
	if !needTitle && !needPrice {
		return
	}

	html, err := s.deps.Accessor.HTML()
	if err != nil || html == "" {
		log.Debug("glean: page HTML unavailable for fallback", "error", err)
		return
	}
	if needTitle {
		if v, ok := s.deps.Gateway.ExtractField(ctx, html, fallback.FieldTitle); ok {
			rec.Title = v
		}
	}
	if needPrice {
		if v, ok := s.deps.Gateway.ExtractField(ctx, html, fallback.FieldPrice); ok {
			rec.Price = v
		}
	}
}

// restore returns the accessor to the listing: close the popup and
// re-activate the main handle, or navigate back for same-tab visits. A click
// that never left the listing needs neither, and going Back then would lose
// the current listing page.
func (s *Session) restore(ctx context.Context, mainHandle, popup, listingURL string) error {
	acc := s.deps.Accessor
	if popup != "" {
		if err := acc.CloseHandle(popup); err != nil {
			return fmt.Errorf("close popup: %w", err)
		}
		if err := acc.Activate(mainHandle); err != nil {
			return fmt.Errorf("reactivate main: %w", err)
		}
		return nil
	}
	if cur, err := acc.URL(); err == nil && cur == listingURL {
		return nil
	}
	if err := acc.Back(); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	// The listing re-renders after back-navigation; wait for it before the
	// next container re-query.
	return dom.Settle(ctx, s.cfg.Limits.SettleDelay)
}

// newHandle returns the handle present now but absent from before, or "".
func newHandle(before []string, acc dom.Accessor) string {
	after, err := acc.Handles()
	if err != nil {
		return ""
	}
	seen := make(map[string]struct{}, len(before))
	for _, h := range before {
		seen[h] = struct{}{}
	}
	for _, h := range after {
		if _, ok := seen[h]; !ok {
			return h
		}
	}
	return ""
}

// Ensure the concrete collaborators satisfy the session interfaces.
var (
	_ RecordSink     = (*sink.Writer)(nil)
	_ RunCatalog     = (*catalog.Catalog)(nil)
	_ FieldRecoverer = (*fallback.Gateway)(nil)
)
