package fields

import (
	"testing"

	"github.com/gleanware/glean/dom"
	"github.com/gleanware/glean/dom/domtest"
)

func TestExtractReadsTitleAndPrice(t *testing.T) {
	page := domtest.NewPage()
	page.CurrentURL = "https://shop.test/p/42"
	page.QueryFn = func(css string) ([]dom.Node, error) {
		switch css {
		case "h1":
			return []dom.Node{&domtest.Node{TagName: "h1", TextContent: "  Mechanical Keyboard  "}}, nil
		case "[itemprop='price']":
			return []dom.Node{&domtest.Node{TextContent: "Now only $59.99!"}}, nil
		}
		return nil, nil
	}

	rec := New(Config{}).Extract(page)
	if rec.URL != "https://shop.test/p/42" {
		t.Errorf("URL = %q", rec.URL)
	}
	if rec.Title != "Mechanical Keyboard" {
		t.Errorf("Title = %q, want trimmed heading text", rec.Title)
	}
	if rec.Price != "$59.99" {
		t.Errorf("Price = %q, want the extracted dollar amount", rec.Price)
	}
}

func TestExtractSkipsInvisibleProbeHits(t *testing.T) {
	page := domtest.NewPage()
	page.QueryFn = func(css string) ([]dom.Node, error) {
		if css == "h1" {
			return []dom.Node{
				&domtest.Node{TagName: "h1", TextContent: "Hidden heading", Hidden: true},
				&domtest.Node{TagName: "h1", TextContent: "Visible heading"},
			}, nil
		}
		return nil, nil
	}

	rec := New(Config{}).Extract(page)
	if rec.Title != "Visible heading" {
		t.Errorf("Title = %q, want the visible heading", rec.Title)
	}
}

func TestExtractMissingFieldsStayEmpty(t *testing.T) {
	rec := New(Config{}).Extract(domtest.NewPage())
	if rec.Title != "" || rec.Price != "" {
		t.Errorf("empty page should yield empty fields, got %+v", rec)
	}
}

func TestValidPrice(t *testing.T) {
	e := New(Config{})
	cases := []struct {
		price string
		want  bool
	}{
		{"$59.99", true},
		{"$5", true},
		{"$0.00", false}, // default sentinel
		{"", false},
		{"free", false},
		{"59.99", false}, // no currency marker
	}
	for _, c := range cases {
		if got := e.ValidPrice(c.price); got != c.want {
			t.Errorf("ValidPrice(%q) = %v, want %v", c.price, got, c.want)
		}
	}
}

func TestValidPriceCustomSentinels(t *testing.T) {
	e := New(Config{InvalidPrices: []string{"$1.00"}})
	if e.ValidPrice("$1.00") {
		t.Error("configured sentinel should be invalid")
	}
	if !e.ValidPrice("$0.00") {
		t.Error("replacing the sentinel list drops the default")
	}
}
