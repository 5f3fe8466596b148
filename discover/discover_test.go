package discover

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gleanware/glean/dom"
	"github.com/gleanware/glean/dom/domtest"
)

func fastConfig() Config {
	return Config{
		ScrollRetries: 2,
		ScrollDelay:   time.Millisecond,
		Logger:        testLogger(),
	}
}

// listingPage builds a page whose container scan and signature re-query both
// return the given containers.
func listingPage(sig string, containers []dom.Node) *domtest.Page {
	p := domtest.NewPage()
	p.QueryFn = func(css string) ([]dom.Node, error) {
		switch css {
		case containerSelector, sig:
			return containers, nil
		}
		return nil, nil
	}
	return p
}

func cardContainers(n int) []dom.Node {
	out := make([]dom.Node, n)
	for i := range out {
		out[i] = &domtest.Node{
			Class: "card", Width: 300, Height: 300,
			AnchorList: []dom.Node{
				domtest.Anchor(fmt.Sprintf("/p%d", i), fmt.Sprintf("Product number %d", i), 100, 100),
			},
		}
	}
	return out
}

func TestDiscoverQualifyingCluster(t *testing.T) {
	containers := cardContainers(12)
	page := listingPage(".card", containers)

	listing, ok, err := Discover(context.Background(), page, fastConfig())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !ok {
		t.Fatal("expected a qualifying listing")
	}
	if listing.Signature.Key() != "card" {
		t.Errorf("signature = %q, want card", listing.Signature.Key())
	}
	if len(listing.Links) != 12 {
		t.Fatalf("got %d links, want 12", len(listing.Links))
	}
	if listing.Links[0].Href != "/p0" || listing.Links[11].Href != "/p11" {
		t.Errorf("links out of document order: %q .. %q", listing.Links[0].Href, listing.Links[11].Href)
	}
}

func TestDiscoverBelowFrequencyThreshold(t *testing.T) {
	page := listingPage(".card", cardContainers(9))

	_, ok, err := Discover(context.Background(), page, fastConfig())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if ok {
		t.Error("9 containers must not qualify with the default threshold of 10")
	}
}

func TestDiscoverDeduplicatesHrefs(t *testing.T) {
	containers := cardContainers(12)
	// Containers 3 and 7 point at the same record.
	containers[7].(*domtest.Node).AnchorList = containers[3].(*domtest.Node).AnchorList

	listing, ok, err := Discover(context.Background(), listingPage(".card", containers), fastConfig())
	if err != nil || !ok {
		t.Fatalf("Discover: ok=%v err=%v", ok, err)
	}
	if len(listing.Links) != 11 {
		t.Errorf("got %d links, want 11 after href dedup", len(listing.Links))
	}
}

func TestDiscoverAbortsAfterConsecutiveFailures(t *testing.T) {
	containers := cardContainers(12)
	// One success, then two bare containers in a row.
	containers[1].(*domtest.Node).AnchorList = nil
	containers[2].(*domtest.Node).AnchorList = nil

	_, ok, err := Discover(context.Background(), listingPage(".card", containers), fastConfig())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if ok {
		t.Error("two consecutive unrecovered failures must abandon the candidate")
	}
}

func TestDiscoverSingleFailureRecovers(t *testing.T) {
	containers := cardContainers(13)
	containers[5].(*domtest.Node).AnchorList = nil

	listing, ok, err := Discover(context.Background(), listingPage(".card", containers), fastConfig())
	if err != nil || !ok {
		t.Fatalf("an isolated failure must not sink the candidate: ok=%v err=%v", ok, err)
	}
	if len(listing.Links) != 12 {
		t.Errorf("got %d links, want 12", len(listing.Links))
	}
}

// lazyContainer yields its anchor only after the page has been scrolled,
// modelling lazy-loaded card content.
type lazyContainer struct {
	*domtest.Node
	page   *domtest.Page
	anchor dom.Node
}

func (l *lazyContainer) Anchors() ([]dom.Node, error) {
	if len(l.page.Scrolls) > 0 {
		return []dom.Node{l.anchor}, nil
	}
	return nil, nil
}

func TestDiscoverScrollRetryRecoversLazyContent(t *testing.T) {
	containers := cardContainers(12)
	page := listingPage(".card", containers)
	containers[6] = &lazyContainer{
		Node:   &domtest.Node{Class: "card", Width: 300, Height: 300},
		page:   page,
		anchor: domtest.Anchor("/lazy", "Lazily rendered product", 100, 100),
	}

	listing, ok, err := Discover(context.Background(), page, fastConfig())
	if err != nil || !ok {
		t.Fatalf("Discover: ok=%v err=%v", ok, err)
	}
	if len(page.Scrolls) == 0 {
		t.Fatal("expected a compensation scroll")
	}
	found := false
	for _, l := range listing.Links {
		if l.Href == "/lazy" {
			found = true
		}
	}
	if !found {
		t.Error("scroll retry should have recovered the lazy container's link")
	}
	if len(listing.Links) != 12 {
		t.Errorf("got %d links, want 12", len(listing.Links))
	}
}

func TestExpandLoadMore(t *testing.T) {
	remaining := 3
	btn := &domtest.Node{TagName: "button", TextContent: "Load more", Width: 120, Height: 40}
	page := domtest.NewPage()
	page.XPathFn = func(string) ([]dom.Node, error) {
		if remaining == 0 {
			return nil, nil
		}
		return []dom.Node{btn}, nil
	}
	btn.OnClick = func(*domtest.Node) error {
		remaining--
		return nil
	}

	clicks := ExpandLoadMore(context.Background(), page, 10, time.Millisecond, testLogger())
	if clicks != 3 {
		t.Errorf("clicks = %d, want 3", clicks)
	}
}

func TestExpandLoadMoreHonorsCap(t *testing.T) {
	btn := &domtest.Node{TagName: "button", TextContent: "Load more", Width: 120, Height: 40}
	page := domtest.NewPage()
	page.XPathFn = func(string) ([]dom.Node, error) {
		return []dom.Node{btn}, nil
	}

	clicks := ExpandLoadMore(context.Background(), page, 4, time.Millisecond, testLogger())
	if clicks != 4 {
		t.Errorf("clicks = %d, want the cap of 4", clicks)
	}
}
