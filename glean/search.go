package glean

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gleanware/glean/dom"
)

// searchProbes locate a search input, specific conventions first and a
// generic text input last.
var searchProbes = []string{
	"input[name='q'], input[name='query'], input[name='search'], input[name='searchTerm'], input[name='keyword']",
	"input[placeholder*='search' i], input[placeholder*='Search']",
	"#search, #searchbox, #search-input",
	".search-box input, .search-input, input.search-box, input.search-input",
	"[role='search'] input",
	"[data-test*='search'] input, input[data-test*='search']",
	"[data-testid*='search'] input, input[data-testid*='search']",
	"input[type='search'], input[type='text']",
}

// findSearchBox locates the page's search input, or ok=false when the page
// has none the probes recognize.
func findSearchBox(acc dom.Accessor) (dom.Node, bool) {
	for _, sel := range searchProbes {
		nodes, err := acc.Query(sel)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			if likelySearchBox(n) {
				return n, true
			}
		}
	}
	return nil, false
}

// likelySearchBox filters probe hits: visible, not hidden-typed, and for the
// generic probes carrying some search-ish hint in type, id, class, or
// placeholder.
func likelySearchBox(n dom.Node) bool {
	typ, _, err := n.Attr("type")
	if err != nil {
		return false
	}
	typ = strings.ToLower(typ)
	if typ == "hidden" {
		return false
	}
	visible, err := n.Visible()
	if err != nil || !visible {
		return false
	}
	if typ == "search" {
		return true
	}

	for _, attr := range []string{"name", "id", "class", "placeholder", "aria-label"} {
		val, ok, err := n.Attr(attr)
		if err != nil || !ok {
			continue
		}
		val = strings.ToLower(val)
		for _, hint := range []string{"search", "query", "keyword", "find"} {
			if strings.Contains(val, hint) {
				return true
			}
		}
	}
	// Plain text inputs pass only as the last-resort probe's hit; without a
	// hint they are still a reasonable guess on search-first pages.
	return typ == "text" || typ == ""
}

// submitSearch types the term into the page's search box and submits it with
// Enter, then waits for results to load. ok is false when no search box was
// found; the caller proceeds with the landing page as-is.
func submitSearch(ctx context.Context, acc dom.Accessor, term string, settle time.Duration, log *slog.Logger) (bool, error) {
	box, ok := findSearchBox(acc)
	if !ok {
		log.Info("glean: no search box found, using landing page")
		return false, nil
	}
	if err := box.Input(term); err != nil {
		log.Warn("glean: typing search term failed", "error", err)
		return false, nil
	}
	if err := box.PressEnter(); err != nil {
		log.Warn("glean: submitting search failed", "error", err)
		return false, nil
	}
	log.Info("glean: search submitted", "term", term)
	if err := dom.Settle(ctx, settle); err != nil {
		return false, err
	}
	return true, nil
}
