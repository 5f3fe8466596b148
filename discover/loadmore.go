package discover

import (
	"context"
	"log/slog"
	"time"

	"github.com/gleanware/glean/dom"
)

// loadMoreXPath matches buttons and anchors whose visible text contains
// "load" case-insensitively ("Load more", "LOAD 20 MORE", ...).
const loadMoreXPath = `//button[contains(translate(normalize-space(.),` +
	`'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz'),'load')]` +
	` | //a[contains(translate(normalize-space(.),` +
	`'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz'),'load')]`

// ExpandLoadMore clicks visible "load more" style controls up to maxClicks
// times, pausing after each, so incrementally revealed listings are fully
// expanded before clustering. Returns the number of clicks performed.
func ExpandLoadMore(ctx context.Context, acc dom.Accessor, maxClicks int, pause time.Duration, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	clicks := 0
	for clicks < maxClicks {
		if ctx.Err() != nil {
			return clicks
		}
		controls, err := acc.QueryXPath(loadMoreXPath)
		if err != nil || len(controls) == 0 {
			return clicks
		}

		var btn dom.Node
		for _, c := range controls {
			visible, err := c.Visible()
			if err != nil || !visible {
				continue
			}
			enabled, err := c.Enabled()
			if err != nil || !enabled {
				continue
			}
			btn = c
			break
		}
		if btn == nil {
			logger.Debug("discover: load controls present but none clickable")
			return clicks
		}

		if err := btn.Click(); err != nil {
			if err := btn.ClickJS(); err != nil {
				return clicks
			}
		}
		clicks++
		logger.Debug("discover: clicked load-more control", "clicks", clicks)
		if err := dom.Settle(ctx, pause); err != nil {
			return clicks
		}
	}
	return clicks
}
