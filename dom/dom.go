// Package dom defines the contract between the traversal engine and a live
// rendered page. Engine packages (discover, paginate, glean) speak only to
// the Accessor and Node interfaces; the rod-backed implementation lives in
// rod.go.
//
// Error discipline: a query that matches nothing returns an empty slice,
// never an error. Errors are reserved for the two conditions callers must
// react to — ErrStale (a held handle invalidated by page mutation) and
// ErrBlocked (a click intercepted by an overlay). Anything else is an
// accessor fault and propagates as-is.
package dom

import (
	"context"
	"errors"
	"time"
)

// ErrStale is returned when a previously obtained Node is no longer valid
// because the page mutated or navigated. A stale Node must never be retried;
// callers re-resolve by stable key or abort the current page.
var ErrStale = errors.New("dom: stale element reference")

// ErrBlocked is returned when a direct click is intercepted by an overlay.
// Recovered exactly once via ClickJS.
var ErrBlocked = errors.New("dom: click intercepted")

// Box is an element's rendered extent.
type Box struct {
	Width  float64
	Height float64
}

// Area returns the bounding-box area.
func (b Box) Area() float64 { return b.Width * b.Height }

// Node is a borrowed handle into the live DOM. It is valid only until the
// next navigation or significant mutation; after that every method returns
// ErrStale.
type Node interface {
	// Tag returns the lowercase tag name.
	Tag() (string, error)
	// Classes returns the element's class tokens, unnormalized.
	Classes() ([]string, error)
	// Text returns the visible text content, including descendants.
	Text() (string, error)
	// Attr returns the raw attribute value. ok is false when absent.
	Attr(name string) (string, bool, error)
	// Href returns the resolved absolute URL for anchors. ok is false for
	// non-anchors and anchors without an href.
	Href() (string, bool, error)
	Box() (Box, error)
	Visible() (bool, error)
	Enabled() (bool, error)
	// Click performs a direct user-like click. Returns ErrBlocked when an
	// overlay intercepts it.
	Click() error
	// ClickJS dispatches a programmatic click, bypassing hit testing.
	ClickJS() error
	// Anchors returns all descendant anchor elements in document order.
	Anchors() ([]Node, error)
	// Input replaces the element's current value with text.
	Input(text string) error
	// PressEnter sends an Enter keystroke to the element.
	PressEnter() error
}

// Accessor is the engine's view of one browser session. The active page
// (window handle) is part of the accessor's state: Query, URL, HTML and
// navigation all apply to the currently active handle.
type Accessor interface {
	// Query returns all elements matching the CSS selector, in document
	// order. No match is an empty slice, not an error.
	Query(css string) ([]Node, error)
	// QueryXPath is Query for XPath expressions.
	QueryXPath(xpath string) ([]Node, error)
	// URL returns the active handle's current URL.
	URL() (string, error)
	// Navigate loads url in the active handle and waits for the load event.
	Navigate(url string) error
	// Back navigates the active handle one history entry back.
	Back() error
	// ScrollBy scrolls the active handle vertically by dy pixels.
	ScrollBy(dy float64) error
	// ViewportHeight returns the active handle's inner height.
	ViewportHeight() (float64, error)
	// HTML returns the active handle's serialized document.
	HTML() (string, error)
	// Handles enumerates all window handles, main first.
	Handles() ([]string, error)
	// ActiveHandle returns the handle the accessor currently operates on.
	ActiveHandle() (string, error)
	// Activate makes handle the active one.
	Activate(handle string) error
	// CloseHandle closes a window handle. Closing the active handle leaves
	// the accessor unusable until Activate is called.
	CloseHandle(handle string) error
}

// Settle pauses for d or until ctx is done, whichever comes first. It is
// the fixed pause inserted after actions that trigger asynchronous
// rendering.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
