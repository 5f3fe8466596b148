// Package fields applies deterministic selector rules to a record detail
// page. The rules are deliberately generic — common heading, price, and
// microdata conventions — and best-effort: a miss here is answered by the
// semantic fallback gateway, not treated as an error.
package fields

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/gleanware/glean/dom"
)

// Record is one extracted content record. URL is the only required field; a
// record lacking it is never persisted.
type Record struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Price string `json:"price,omitempty"`
}

// Config controls field extraction.
type Config struct {
	// InvalidPrices lists sentinel values treated as missing even when they
	// parse as prices. Default: ["$0.00"].
	InvalidPrices []string
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if c.InvalidPrices == nil {
		c.InvalidPrices = []string{"$0.00"}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// probe is one selector attempt, CSS or XPath.
type probe struct {
	css   string
	xpath string
}

var titleProbes = []probe{
	{css: "h1"},
	{css: ".product-title, .product-name"},
}

var priceProbes = []probe{
	{css: "[itemprop='price']"},
	{xpath: "//*[contains(text(), '$')]"},
	{css: "[data-testid='price-wrap']"},
	{css: ".price, .product-price"},
	{css: "[data-test*='price'], [data-testid*='price']"},
	{xpath: "//span[contains(@class, 'price')]"},
}

var (
	priceRe    = regexp.MustCompile(`\$\d+(\.\d+)?`)
	priceAnyRe = regexp.MustCompile(`\$\d+`)
)

// Extractor extracts records from the accessor's active page.
type Extractor struct {
	cfg Config
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg}
}

// Extract reads the current page into a Record. URL always comes from the
// accessor; title and price come from the first probe that yields a visible
// element with text. Missing fields stay empty for the caller's fallback
// policy to fill.
func (e *Extractor) Extract(acc dom.Accessor) Record {
	var rec Record
	if url, err := acc.URL(); err == nil {
		rec.URL = url
	}
	rec.Title = e.firstText(acc, titleProbes)
	rec.Price = e.price(acc)
	return rec
}

// ValidPrice reports whether s looks like a usable price: it contains a
// dollar amount and is not a configured sentinel such as "$0.00".
func (e *Extractor) ValidPrice(s string) bool {
	if !priceAnyRe.MatchString(s) {
		return false
	}
	return !slices.Contains(e.cfg.InvalidPrices, s)
}

func (e *Extractor) firstText(acc dom.Accessor, probes []probe) string {
	for _, p := range probes {
		node, ok := firstVisible(acc, p)
		if !ok {
			continue
		}
		text, err := node.Text()
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return ""
}

func (e *Extractor) price(acc dom.Accessor) string {
	for _, p := range priceProbes {
		node, ok := firstVisible(acc, p)
		if !ok {
			continue
		}
		text, err := node.Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if m := priceRe.FindString(text); m != "" {
			e.cfg.Logger.Debug("fields: price matched", "price", m)
			return m
		}
		// No recognizable pattern: keep the raw text and let the validity
		// predicate decide whether the fallback runs.
		return text
	}
	return ""
}

func firstVisible(acc dom.Accessor, p probe) (dom.Node, bool) {
	var nodes []dom.Node
	var err error
	if p.css != "" {
		nodes, err = acc.Query(p.css)
	} else {
		nodes, err = acc.QueryXPath(p.xpath)
	}
	if err != nil {
		return nil, false
	}
	for _, n := range nodes {
		visible, err := n.Visible()
		if err == nil && visible {
			return n, true
		}
	}
	return nil, false
}
