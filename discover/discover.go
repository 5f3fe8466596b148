package discover

import (
	"context"
	"log/slog"
	"time"

	"github.com/gleanware/glean/dom"
)

// Config controls list discovery.
type Config struct {
	// MinClusterSize is both the minimum signature frequency and the
	// minimum unique-link count for a candidate to qualify. Default: 10.
	MinClusterSize int
	// ScrollRetries caps the scroll-and-retry cycles run when a container
	// fails immediately after a success. Default: 5.
	ScrollRetries int
	// ScrollDelay is the pause after each compensation scroll. Default: 700ms.
	ScrollDelay time.Duration
	// MaxConsecutiveFailures aborts a candidate signature once this many
	// containers fail in a row. Default: 2.
	MaxConsecutiveFailures int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MinClusterSize <= 0 {
		c.MinClusterSize = 10
	}
	if c.ScrollRetries <= 0 {
		c.ScrollRetries = 5
	}
	if c.ScrollDelay <= 0 {
		c.ScrollDelay = 700 * time.Millisecond
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = 2
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Listing is a discovered record list: the winning signature and one unique
// primary link per container, in document order.
type Listing struct {
	Signature Signature
	Links     []Link
}

// Discover finds the page's record list. It ranks class signatures by
// frequency, then probes each candidate's containers for primary links until
// one signature accumulates MinClusterSize unique hrefs — the first
// qualifying candidate wins and no further ones are tried.
//
// A container failure straight after a success is treated as lazy-load lag
// and answered with scroll-retry cycles; two consecutive unrecovered
// failures abandon the candidate. ok is false when no candidate qualifies,
// which ends pagination for the page but is not an error.
func Discover(ctx context.Context, acc dom.Accessor, cfg Config) (*Listing, bool, error) {
	cfg.defaults()
	log := cfg.Logger

	clusters, err := ClusterByClass(acc, cfg.MinClusterSize, log)
	if err != nil {
		return nil, false, err
	}
	if len(clusters) == 0 {
		log.Warn("discover: no class signature with sufficient frequency")
		return nil, false, nil
	}

	for _, cluster := range clusters {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		listing, ok, err := tryCandidate(ctx, acc, cluster, cfg)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return listing, true, nil
		}
	}

	log.Warn("discover: all candidate signatures failed")
	return nil, false, nil
}

func tryCandidate(ctx context.Context, acc dom.Accessor, cluster Cluster, cfg Config) (*Listing, bool, error) {
	log := cfg.Logger
	sig := cluster.Signature

	containers, err := acc.Query(sig.Selector())
	if err != nil {
		return nil, false, err
	}
	if len(containers) < cfg.MinClusterSize {
		log.Debug("discover: candidate has too few containers",
			"signature", sig.Key(), "count", len(containers))
		return nil, false, nil
	}
	log.Info("discover: trying candidate signature",
		"signature", sig.Key(), "containers", len(containers), "frequency", cluster.Count)

	scrollStep, err := acc.ViewportHeight()
	if err != nil || scrollStep <= 0 {
		scrollStep = 600
	}

	var links []Link
	seen := make(map[string]struct{})
	consecutiveFailures := 0
	// Tracks whether the previous container yielded a link; scroll-retry
	// only fires on a failure that follows a success. A cold failure on the
	// very first container never scrolls — a known under-recovery for pages
	// that lazy-load from the top, preserved deliberately.
	lastSucceeded := false

	record := func(l Link) {
		if _, dup := seen[l.Href]; !dup && l.Href != "" {
			seen[l.Href] = struct{}{}
			links = append(links, l)
		}
	}

	for idx, container := range containers {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		link, ok, err := PrimaryLink(container)
		if err != nil {
			// Stale container: count as a plain failure and move on; the
			// candidate abort rule below bounds the damage.
			ok = false
		}

		if ok {
			consecutiveFailures = 0
			lastSucceeded = true
			record(link)
		} else if lastSucceeded {
			link, ok = scrollRetry(ctx, acc, container, idx, scrollStep, cfg)
			if ok {
				consecutiveFailures = 0
				lastSucceeded = true
				record(link)
			} else {
				consecutiveFailures++
				lastSucceeded = false
			}
		} else {
			consecutiveFailures++
		}

		if consecutiveFailures >= cfg.MaxConsecutiveFailures {
			log.Warn("discover: consecutive extraction failures, abandoning candidate",
				"signature", sig.Key(), "failures", consecutiveFailures, "at_container", idx)
			break
		}
	}

	if len(links) >= cfg.MinClusterSize {
		log.Info("discover: candidate qualified",
			"signature", sig.Key(), "unique_links", len(links))
		return &Listing{Signature: sig, Links: links}, true, nil
	}
	log.Debug("discover: candidate yielded too few unique links",
		"signature", sig.Key(), "unique_links", len(links))
	return nil, false, nil
}

// scrollRetry compensates for lazy-loaded content: scroll one viewport,
// settle, and re-probe the same container, up to ScrollRetries cycles.
func scrollRetry(ctx context.Context, acc dom.Accessor, container dom.Node, idx int, step float64, cfg Config) (Link, bool) {
	for attempt := 1; attempt <= cfg.ScrollRetries; attempt++ {
		if ctx.Err() != nil {
			return Link{}, false
		}
		if err := acc.ScrollBy(step); err != nil {
			return Link{}, false
		}
		cfg.Logger.Debug("discover: scroll retry",
			"container", idx, "attempt", attempt, "max", cfg.ScrollRetries)
		if err := dom.Settle(ctx, cfg.ScrollDelay); err != nil {
			return Link{}, false
		}
		link, ok, err := PrimaryLink(container)
		if err == nil && ok {
			return link, true
		}
	}
	return Link{}, false
}
