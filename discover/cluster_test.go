package discover

import (
	"log/slog"
	"testing"

	"github.com/gleanware/glean/dom"
	"github.com/gleanware/glean/dom/domtest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func pageWithElements(els []dom.Node) *domtest.Page {
	p := domtest.NewPage()
	p.QueryFn = func(css string) ([]dom.Node, error) {
		if css == containerSelector {
			return els, nil
		}
		return nil, nil
	}
	return p
}

func divs(class string, n int) []dom.Node {
	out := make([]dom.Node, n)
	for i := range out {
		out[i] = &domtest.Node{Class: class, Width: 200, Height: 200}
	}
	return out
}

func TestClusterByClassFrequencyAndOrder(t *testing.T) {
	els := append(divs("product card", 12), divs("banner", 3)...)
	els = append(els, divs("tile", 15)...)

	clusters, err := ClusterByClass(pageWithElements(els), 10, testLogger())
	if err != nil {
		t.Fatalf("ClusterByClass: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	if clusters[0].Signature.Key() != "tile" || clusters[0].Count != 15 {
		t.Errorf("clusters[0] = %q x%d, want tile x15", clusters[0].Signature.Key(), clusters[0].Count)
	}
	if clusters[1].Signature.Key() != "card product" || clusters[1].Count != 12 {
		t.Errorf("clusters[1] = %q x%d, want 'card product' x12", clusters[1].Signature.Key(), clusters[1].Count)
	}
}

func TestClusterByClassSkipsInvisibleAndBroken(t *testing.T) {
	els := divs("card", 10)
	els[0].(*domtest.Node).Hidden = true
	els[1].(*domtest.Node).ReadErr = dom.ErrStale

	clusters, err := ClusterByClass(pageWithElements(els), 9, testLogger())
	if err != nil {
		t.Fatalf("ClusterByClass: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("invisible and stale elements must not count: got %d clusters", len(clusters))
	}
}

func TestClusterByClassPermutedClassesCollapse(t *testing.T) {
	els := append(divs("a b", 6), divs("b a", 6)...)
	clusters, err := ClusterByClass(pageWithElements(els), 10, testLogger())
	if err != nil {
		t.Fatalf("ClusterByClass: %v", err)
	}
	if len(clusters) != 1 || clusters[0].Count != 12 {
		t.Fatalf("permuted class lists should share one cluster of 12, got %+v", clusters)
	}
}
