package dom

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultOpTimeout bounds every individual accessor operation so a hung
// renderer cannot stall the traversal loop indefinitely.
const DefaultOpTimeout = 10 * time.Second

// RodAccessor implements Accessor over a Rod browser connection. The active
// handle is tracked as the page all queries run against; Activate switches
// it when the session follows a popup.
type RodAccessor struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

// NewRodAccessor wraps an open page. opTimeout bounds each operation;
// zero means DefaultOpTimeout.
func NewRodAccessor(browser *rod.Browser, page *rod.Page, opTimeout time.Duration) *RodAccessor {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &RodAccessor{browser: browser, page: page, timeout: opTimeout}
}

func (a *RodAccessor) p() *rod.Page { return a.page.Timeout(a.timeout) }

func (a *RodAccessor) Query(css string) ([]Node, error) {
	els, err := a.p().Elements(css)
	if err != nil {
		return nil, translateErr(err)
	}
	return a.wrapAll(els), nil
}

func (a *RodAccessor) QueryXPath(xpath string) ([]Node, error) {
	els, err := a.p().ElementsX(xpath)
	if err != nil {
		return nil, translateErr(err)
	}
	return a.wrapAll(els), nil
}

func (a *RodAccessor) wrapAll(els rod.Elements) []Node {
	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, &rodNode{el: el, timeout: a.timeout})
	}
	return nodes
}

func (a *RodAccessor) URL() (string, error) {
	info, err := a.p().Info()
	if err != nil {
		return "", translateErr(err)
	}
	return info.URL, nil
}

func (a *RodAccessor) Navigate(url string) error {
	if err := a.p().Navigate(url); err != nil {
		return translateErr(err)
	}
	// Load timeout is tolerable: heavy pages keep loading subresources
	// long after the DOM is usable.
	_ = a.p().WaitLoad()
	return nil
}

func (a *RodAccessor) Back() error {
	if err := a.p().NavigateBack(); err != nil {
		return translateErr(err)
	}
	_ = a.p().WaitLoad()
	return nil
}

func (a *RodAccessor) ScrollBy(dy float64) error {
	_, err := a.p().Eval(`dy => window.scrollBy(0, dy)`, dy)
	return translateErr(err)
}

func (a *RodAccessor) ViewportHeight() (float64, error) {
	res, err := a.p().Eval(`() => window.innerHeight`)
	if err != nil {
		return 0, translateErr(err)
	}
	return res.Value.Num(), nil
}

func (a *RodAccessor) HTML() (string, error) {
	html, err := a.p().HTML()
	if err != nil {
		return "", translateErr(err)
	}
	return html, nil
}

func (a *RodAccessor) Handles() ([]string, error) {
	pages, err := a.browser.Pages()
	if err != nil {
		return nil, translateErr(err)
	}
	handles := make([]string, 0, len(pages))
	for _, p := range pages {
		handles = append(handles, string(p.TargetID))
	}
	return handles, nil
}

func (a *RodAccessor) ActiveHandle() (string, error) {
	return string(a.page.TargetID), nil
}

func (a *RodAccessor) Activate(handle string) error {
	pages, err := a.browser.Pages()
	if err != nil {
		return translateErr(err)
	}
	for _, p := range pages {
		if string(p.TargetID) == handle {
			if _, err := p.Activate(); err != nil {
				return translateErr(err)
			}
			a.page = p
			return nil
		}
	}
	return fmt.Errorf("dom: no window with handle %q", handle)
}

func (a *RodAccessor) CloseHandle(handle string) error {
	pages, err := a.browser.Pages()
	if err != nil {
		return translateErr(err)
	}
	for _, p := range pages {
		if string(p.TargetID) == handle {
			return translateErr(p.Close())
		}
	}
	return fmt.Errorf("dom: no window with handle %q", handle)
}

// rodNode adapts a rod element to the Node interface.
type rodNode struct {
	el      *rod.Element
	timeout time.Duration
}

func (n *rodNode) e() *rod.Element { return n.el.Timeout(n.timeout) }

func (n *rodNode) Tag() (string, error) {
	res, err := n.e().Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return "", translateErr(err)
	}
	return res.Value.Str(), nil
}

func (n *rodNode) Classes() ([]string, error) {
	v, ok, err := n.Attr("class")
	if err != nil || !ok {
		return nil, err
	}
	return strings.Fields(v), nil
}

func (n *rodNode) Text() (string, error) {
	text, err := n.e().Text()
	if err != nil {
		return "", translateErr(err)
	}
	return text, nil
}

func (n *rodNode) Attr(name string) (string, bool, error) {
	v, err := n.e().Attribute(name)
	if err != nil {
		return "", false, translateErr(err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (n *rodNode) Href() (string, bool, error) {
	// The href property resolves relative URLs; the attribute does not.
	res, err := n.e().Eval(`() => this.href || ""`)
	if err != nil {
		return "", false, translateErr(err)
	}
	href := res.Value.Str()
	return href, href != "", nil
}

func (n *rodNode) Box() (Box, error) {
	res, err := n.e().Eval(`() => {
		const r = this.getBoundingClientRect();
		return {width: r.width, height: r.height};
	}`)
	if err != nil {
		return Box{}, translateErr(err)
	}
	return Box{
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

func (n *rodNode) Visible() (bool, error) {
	visible, err := n.e().Visible()
	if err != nil {
		return false, translateErr(err)
	}
	return visible, nil
}

func (n *rodNode) Enabled() (bool, error) {
	res, err := n.e().Eval(`() => !this.disabled`)
	if err != nil {
		return false, translateErr(err)
	}
	return res.Value.Bool(), nil
}

func (n *rodNode) Click() error {
	return translateErr(n.e().Click(proto.InputMouseButtonLeft, 1))
}

func (n *rodNode) ClickJS() error {
	_, err := n.e().Eval(`() => this.click()`)
	return translateErr(err)
}

func (n *rodNode) Anchors() ([]Node, error) {
	els, err := n.e().Elements("a")
	if err != nil {
		return nil, translateErr(err)
	}
	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, &rodNode{el: el, timeout: n.timeout})
	}
	return nodes, nil
}

func (n *rodNode) Input(text string) error {
	if err := n.e().SelectAllText(); err != nil {
		return translateErr(err)
	}
	return translateErr(n.e().Input(text))
}

func (n *rodNode) PressEnter() error {
	return translateErr(n.e().Type(input.Enter))
}

// translateErr maps rod and CDP failures onto the package taxonomy.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, &rod.ObjectNotFoundError{}) {
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	if errors.Is(err, &rod.CoveredError{}) ||
		errors.Is(err, &rod.NoPointerEventsError{}) ||
		errors.Is(err, &rod.InvisibleShapeError{}) {
		return fmt.Errorf("%w: %v", ErrBlocked, err)
	}
	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) && staleCDPMessage(cdpErr.Message) {
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	return err
}

func staleCDPMessage(msg string) bool {
	for _, s := range []string{
		"Cannot find context with specified id",
		"Could not find node with given id",
		"Node with given id does not belong to the document",
		"Object couldn't be returned by value",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
