package glean

import (
	"log/slog"

	"github.com/go-rod/rod"

	"github.com/gleanware/glean/dom"
	"github.com/gleanware/glean/glean/internal/browser"
)

// Browser is the Chrome instance shared by a batch of site runs.
type Browser struct {
	mgr *browser.Manager
	b   *rod.Browser
}

// StartBrowser launches (or connects to) Chrome per the configuration.
func StartBrowser(cfg BrowserConfig, logger *slog.Logger) (*Browser, error) {
	headless := cfg.Headless == nil || *cfg.Headless
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Remote,
		Headless:         headless,
		ResourceBlocking: cfg.ResourceBlocking,
		Logger:           logger,
	})
	b, err := mgr.Start()
	if err != nil {
		return nil, err
	}
	return &Browser{mgr: mgr, b: b}, nil
}

// NewAccessor opens a fresh stealth page and wraps it as a dom.Accessor.
// The caller closes the returned page when its site run finishes.
func (br *Browser) NewAccessor() (dom.Accessor, *rod.Page, error) {
	page, err := br.mgr.NewPage()
	if err != nil {
		return nil, nil, err
	}
	return dom.NewRodAccessor(br.b, page, dom.DefaultOpTimeout), page, nil
}

// Close shuts down Chrome.
func (br *Browser) Close() error { return br.mgr.Close() }
