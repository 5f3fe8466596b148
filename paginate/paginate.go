// Package paginate locates and operates "next page" controls on listing
// pages. Locator strategies run in fixed priority order and a click only
// counts as progress when the page URL changes — dynamic but non-paginating
// UI changes never produce a false positive.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gleanware/glean/dom"
)

// strategy is one independent way to locate a next-page control.
type strategy struct {
	name  string
	css   string
	xpath string
}

// strategies in fixed priority order: explicit test markers first, then
// accessible names, class heuristics, icon buttons, literal text, and
// conventional pagination classes last.
var strategies = []strategy{
	{name: "test-marker", css: `[data-testid='NextPage'], [data-test='next'], [data-testid*='next']`},
	{name: "aria-label", css: `[aria-label*='next' i], [aria-label*='Next' i]`},
	{name: "class-heuristic", css: `[class*='next'], .styles_next`},
	{name: "icon-button", xpath: `//a[.//*[contains(@class,'ChevronRight')]] | //button[.//*[name()='svg']]`},
	{name: "literal-text", xpath: `//*[contains(translate(text(),'NEXT','next'),'next')]`},
	{name: "pagination-class", css: `.pagination .next, .pagination-next`},
}

// Config controls pagination.
type Config struct {
	// Settle is the pause after a click before the URL is re-read.
	// Default: 3s.
	Settle time.Duration
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Settle <= 0 {
		c.Settle = 3 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// control is one next-page candidate with a key stable enough to dedupe it
// across re-enumerations within a single page-advance attempt.
type control struct {
	node dom.Node
	key  string
}

// Navigator advances through a paginated listing. It keeps a tried-set per
// instance, so create one Navigator per page-advance attempt.
type Navigator struct {
	acc   dom.Accessor
	cfg   Config
	tried map[string]struct{}
}

// New creates a Navigator for one page-advance attempt.
func New(acc dom.Accessor, cfg Config) *Navigator {
	cfg.defaults()
	return &Navigator{acc: acc, cfg: cfg, tried: make(map[string]struct{})}
}

// Advance finds the primary next-page candidate and click-verifies it. If
// the primary fails, every remaining candidate across all strategies is
// tried in priority order until one verifies. Returns false when no control
// produced a URL change — pagination for the site ends there.
func (n *Navigator) Advance(ctx context.Context) (bool, error) {
	log := n.cfg.Logger

	primary, ok := n.candidate()
	if !ok {
		log.Info("paginate: no next-page control found")
		return false, nil
	}

	advanced, err := n.tryControl(ctx, primary)
	if err != nil {
		return false, err
	}
	if advanced {
		return true, nil
	}

	log.Info("paginate: primary control failed verification, trying alternates")
	for _, alt := range n.allCandidates() {
		advanced, err := n.tryControl(ctx, alt)
		if err != nil {
			return false, err
		}
		if advanced {
			log.Info("paginate: alternate control verified")
			return true, nil
		}
	}

	log.Warn("paginate: all candidates exhausted without URL change", "tried", len(n.tried))
	return false, nil
}

// candidate returns the first visible, enabled, untried control in strategy
// priority order.
func (n *Navigator) candidate() (control, bool) {
	for si := range strategies {
		if c, ok := n.firstFromStrategy(si); ok {
			return c, true
		}
	}
	return control{}, false
}

// allCandidates enumerates every visible, enabled, untried control across
// all strategies, preserving strategy priority order.
func (n *Navigator) allCandidates() []control {
	var all []control
	for si := range strategies {
		all = append(all, n.fromStrategy(si)...)
	}
	return all
}

func (n *Navigator) firstFromStrategy(si int) (control, bool) {
	controls := n.fromStrategy(si)
	if len(controls) == 0 {
		return control{}, false
	}
	return controls[0], true
}

func (n *Navigator) fromStrategy(si int) []control {
	s := strategies[si]
	var nodes []dom.Node
	var err error
	if s.css != "" {
		nodes, err = n.acc.Query(s.css)
	} else {
		nodes, err = n.acc.QueryXPath(s.xpath)
	}
	if err != nil {
		return nil
	}

	var out []control
	for ei, node := range nodes {
		visible, err := node.Visible()
		if err != nil || !visible {
			continue
		}
		enabled, err := node.Enabled()
		if err != nil || !enabled {
			continue
		}
		c := control{node: node, key: controlKey(si, ei, node)}
		if _, done := n.tried[c.key]; done {
			continue
		}
		out = append(out, c)
	}
	return out
}

// controlKey identifies a control within one page-advance attempt. Live
// handles cannot be compared across re-queries, so the key combines the
// strategy, the element's position, and its href or text.
func controlKey(si, ei int, node dom.Node) string {
	ident := ""
	if href, ok, err := node.Href(); err == nil && ok {
		ident = href
	} else if text, err := node.Text(); err == nil {
		ident = strings.TrimSpace(text)
	}
	return fmt.Sprintf("%d/%d/%s", si, ei, ident)
}

// tryControl implements the click-and-verify protocol: capture the URL,
// click (falling back to a programmatic click exactly once when an overlay
// intercepts), settle, and compare. A changed URL is the only success
// signal.
func (n *Navigator) tryControl(ctx context.Context, c control) (bool, error) {
	log := n.cfg.Logger
	n.tried[c.key] = struct{}{}

	before, err := n.acc.URL()
	if err != nil {
		return false, err
	}

	if err := c.node.Click(); err != nil {
		if !errors.Is(err, dom.ErrBlocked) {
			log.Debug("paginate: click failed", "key", c.key, "error", err)
			return false, nil
		}
		log.Warn("paginate: click intercepted, retrying via JS", "key", c.key)
		if err := c.node.ClickJS(); err != nil {
			log.Debug("paginate: JS click failed", "key", c.key, "error", err)
			return false, nil
		}
	}

	if err := dom.Settle(ctx, n.cfg.Settle); err != nil {
		return false, err
	}

	after, err := n.acc.URL()
	if err != nil {
		return false, err
	}
	if after == before {
		log.Debug("paginate: no URL change after click", "key", c.key, "url", before)
		return false, nil
	}
	log.Info("paginate: advanced", "from", before, "to", after)
	return true, nil
}
