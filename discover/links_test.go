package discover

import (
	"errors"
	"testing"

	"github.com/gleanware/glean/dom"
	"github.com/gleanware/glean/dom/domtest"
)

func TestPrimaryLinkPrefersLongestText(t *testing.T) {
	container := &domtest.Node{
		Width: 300, Height: 300,
		AnchorList: []dom.Node{
			domtest.Anchor("/a", "Buy", 100, 100),
			domtest.Anchor("/b", "Mechanical keyboard with RGB", 100, 100),
			domtest.Anchor("/c", "Details", 500, 500),
		},
	}
	link, ok, err := PrimaryLink(container)
	if err != nil || !ok {
		t.Fatalf("PrimaryLink: ok=%v err=%v", ok, err)
	}
	if link.Href != "/b" {
		t.Errorf("got %q, want the longest-text anchor /b", link.Href)
	}
}

func TestPrimaryLinkAreaBreaksTies(t *testing.T) {
	container := &domtest.Node{
		Width: 300, Height: 300,
		AnchorList: []dom.Node{
			domtest.Anchor("/small", "Product", 50, 50),
			domtest.Anchor("/large", "Product", 200, 200),
		},
	}
	link, ok, err := PrimaryLink(container)
	if err != nil || !ok {
		t.Fatalf("PrimaryLink: ok=%v err=%v", ok, err)
	}
	if link.Href != "/large" {
		t.Errorf("got %q, want the larger anchor /large", link.Href)
	}
}

func TestPrimaryLinkContainerAnchorWins(t *testing.T) {
	container := &domtest.Node{
		TagName: "a", HrefURL: "/container", Width: 200, Height: 200,
		AnchorList: []dom.Node{
			domtest.Anchor("/nested", "Nested link text", 100, 100),
		},
	}
	link, ok, err := PrimaryLink(container)
	if err != nil || !ok {
		t.Fatalf("PrimaryLink: ok=%v err=%v", ok, err)
	}
	if link.Href != "/container" {
		t.Errorf("got %q, want the container's own href", link.Href)
	}
}

func TestPrimaryLinkFiltersPlaceholders(t *testing.T) {
	hidden := domtest.Anchor("/hidden", "Hidden product link", 100, 100)
	hidden.Hidden = true
	tiny := domtest.Anchor("/tiny", "x", 10, 10)

	container := &domtest.Node{
		Width: 30, Height: 30, // too small to vouch for the tiny anchor
		AnchorList: []dom.Node{
			domtest.Anchor("javascript:void(0)", "Click here for details", 100, 100),
			hidden,
			tiny,
			&domtest.Node{TagName: "a", TextContent: "No href anchor text", Width: 100, Height: 100},
		},
	}
	if _, ok, err := PrimaryLink(container); err != nil || ok {
		t.Errorf("all anchors are placeholders: ok=%v err=%v", ok, err)
	}
}

func TestPrimaryLinkSmallAnchorRescuedByLargeTile(t *testing.T) {
	container := &domtest.Node{
		Width: 400, Height: 400,
		AnchorList: []dom.Node{
			domtest.Anchor("/img", "", 20, 20),
		},
	}
	link, ok, err := PrimaryLink(container)
	if err != nil || !ok {
		t.Fatalf("large tile should vouch for its small anchor: ok=%v err=%v", ok, err)
	}
	if link.Href != "/img" {
		t.Errorf("got %q, want /img", link.Href)
	}
}

func TestPrimaryLinkStaleContainer(t *testing.T) {
	container := &domtest.Node{ReadErr: dom.ErrStale}
	_, ok, err := PrimaryLink(container)
	if ok {
		t.Error("stale container must not yield a link")
	}
	if !errors.Is(err, dom.ErrStale) {
		t.Errorf("err = %v, want dom.ErrStale", err)
	}
}

func TestPrimaryLinkStaleAnchorSkipped(t *testing.T) {
	stale := domtest.Anchor("/gone", "Vanished product", 100, 100)
	stale.ReadErr = dom.ErrStale
	container := &domtest.Node{
		Width: 300, Height: 300,
		AnchorList: []dom.Node{
			stale,
			domtest.Anchor("/alive", "Surviving product", 100, 100),
		},
	}
	link, ok, err := PrimaryLink(container)
	if err != nil || !ok {
		t.Fatalf("one stale anchor must not fail the container: ok=%v err=%v", ok, err)
	}
	if link.Href != "/alive" {
		t.Errorf("got %q, want /alive", link.Href)
	}
}
