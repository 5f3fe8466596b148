// Package domtest provides in-memory fakes for the dom interfaces so engine
// packages can be tested without a browser.
package domtest

import (
	"strings"

	"github.com/gleanware/glean/dom"
)

// Node is a scriptable dom.Node. Zero value is a visible, enabled <div>
// with no classes, text, or anchors.
type Node struct {
	TagName     string // defaults to "div"
	Class       string
	TextContent string
	TitleAttr   string
	HrefURL     string
	Attrs       map[string]string
	Width       float64
	Height      float64
	Hidden      bool
	Disabled    bool
	AnchorList  []dom.Node

	// ReadErr, when set, is returned from every method. Use dom.ErrStale
	// to simulate a handle invalidated by page mutation.
	ReadErr  error
	ClickErr error

	// OnClick, OnJSClick, and OnEnter run on successful interactions,
	// letting tests mutate page state (navigation, popups, search results).
	OnClick   func(*Node) error
	OnJSClick func(*Node) error
	OnEnter   func(*Node) error

	Clicks       int
	JSClicks     int
	InputText    string
	EnterPressed bool
}

var _ dom.Node = (*Node)(nil)

func (n *Node) Tag() (string, error) {
	if n.ReadErr != nil {
		return "", n.ReadErr
	}
	if n.TagName == "" {
		return "div", nil
	}
	return strings.ToLower(n.TagName), nil
}

func (n *Node) Classes() ([]string, error) {
	if n.ReadErr != nil {
		return nil, n.ReadErr
	}
	return strings.Fields(n.Class), nil
}

func (n *Node) Text() (string, error) {
	if n.ReadErr != nil {
		return "", n.ReadErr
	}
	return n.TextContent, nil
}

func (n *Node) Attr(name string) (string, bool, error) {
	if n.ReadErr != nil {
		return "", false, n.ReadErr
	}
	switch name {
	case "class":
		return n.Class, n.Class != "", nil
	case "title":
		return n.TitleAttr, n.TitleAttr != "", nil
	case "href":
		return n.HrefURL, n.HrefURL != "", nil
	}
	v, ok := n.Attrs[name]
	return v, ok, nil
}

func (n *Node) Href() (string, bool, error) {
	if n.ReadErr != nil {
		return "", false, n.ReadErr
	}
	return n.HrefURL, n.HrefURL != "", nil
}

func (n *Node) Box() (dom.Box, error) {
	if n.ReadErr != nil {
		return dom.Box{}, n.ReadErr
	}
	return dom.Box{Width: n.Width, Height: n.Height}, nil
}

func (n *Node) Visible() (bool, error) {
	if n.ReadErr != nil {
		return false, n.ReadErr
	}
	return !n.Hidden, nil
}

func (n *Node) Enabled() (bool, error) {
	if n.ReadErr != nil {
		return false, n.ReadErr
	}
	return !n.Disabled, nil
}

func (n *Node) Click() error {
	if n.ReadErr != nil {
		return n.ReadErr
	}
	if n.ClickErr != nil {
		return n.ClickErr
	}
	n.Clicks++
	if n.OnClick != nil {
		return n.OnClick(n)
	}
	return nil
}

func (n *Node) ClickJS() error {
	if n.ReadErr != nil {
		return n.ReadErr
	}
	n.JSClicks++
	if n.OnJSClick != nil {
		return n.OnJSClick(n)
	}
	return nil
}

func (n *Node) Anchors() ([]dom.Node, error) {
	if n.ReadErr != nil {
		return nil, n.ReadErr
	}
	return n.AnchorList, nil
}

func (n *Node) Input(text string) error {
	if n.ReadErr != nil {
		return n.ReadErr
	}
	n.InputText = text
	return nil
}

func (n *Node) PressEnter() error {
	if n.ReadErr != nil {
		return n.ReadErr
	}
	n.EnterPressed = true
	if n.OnEnter != nil {
		return n.OnEnter(n)
	}
	return nil
}

// Anchor is shorthand for a visible anchor node with text and a box.
func Anchor(href, text string, w, h float64) *Node {
	return &Node{TagName: "a", HrefURL: href, TextContent: text, Width: w, Height: h}
}

// Page is a scriptable dom.Accessor. Function fields override the default
// behavior; unset queries return no matches.
type Page struct {
	CurrentURL  string
	HTMLContent string
	Viewport    float64

	QueryFn    func(css string) ([]dom.Node, error)
	XPathFn    func(xpath string) ([]dom.Node, error)
	NavigateFn func(url string) error
	BackFn     func() error
	ScrollFn   func(dy float64) error

	HandleList []string
	Active     string
	ActivateFn func(handle string) error
	CloseFn    func(handle string) error

	Scrolls []float64
}

var _ dom.Accessor = (*Page)(nil)

// NewPage returns a Page with one main window handle and an 800px viewport.
func NewPage() *Page {
	return &Page{Viewport: 800, HandleList: []string{"main"}, Active: "main"}
}

func (p *Page) Query(css string) ([]dom.Node, error) {
	if p.QueryFn == nil {
		return nil, nil
	}
	return p.QueryFn(css)
}

func (p *Page) QueryXPath(xpath string) ([]dom.Node, error) {
	if p.XPathFn == nil {
		return nil, nil
	}
	return p.XPathFn(xpath)
}

func (p *Page) URL() (string, error) { return p.CurrentURL, nil }

func (p *Page) Navigate(url string) error {
	if p.NavigateFn != nil {
		return p.NavigateFn(url)
	}
	p.CurrentURL = url
	return nil
}

func (p *Page) Back() error {
	if p.BackFn != nil {
		return p.BackFn()
	}
	return nil
}

func (p *Page) ScrollBy(dy float64) error {
	p.Scrolls = append(p.Scrolls, dy)
	if p.ScrollFn != nil {
		return p.ScrollFn(dy)
	}
	return nil
}

func (p *Page) ViewportHeight() (float64, error) { return p.Viewport, nil }

func (p *Page) HTML() (string, error) { return p.HTMLContent, nil }

func (p *Page) Handles() ([]string, error) {
	out := make([]string, len(p.HandleList))
	copy(out, p.HandleList)
	return out, nil
}

func (p *Page) ActiveHandle() (string, error) { return p.Active, nil }

func (p *Page) Activate(handle string) error {
	if p.ActivateFn != nil {
		return p.ActivateFn(handle)
	}
	p.Active = handle
	return nil
}

func (p *Page) CloseHandle(handle string) error {
	if p.CloseFn != nil {
		return p.CloseFn(handle)
	}
	for i, h := range p.HandleList {
		if h == handle {
			p.HandleList = append(p.HandleList[:i], p.HandleList[i+1:]...)
			break
		}
	}
	return nil
}
