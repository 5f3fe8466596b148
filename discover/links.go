package discover

import (
	"errors"
	"sort"
	"strings"

	"github.com/gleanware/glean/dom"
)

const (
	// minMeaningfulText is the text/title length above which an anchor
	// counts as significant regardless of its size.
	minMeaningfulText = 5
	// minLinkSide is the minimum width and height for an anchor to be
	// "reasonably sized" on its own.
	minLinkSide = 40
	// minParentSide is the container size that rescues a small anchor
	// wrapped in a large tile.
	minParentSide = 50
)

// Link is a container's primary link: the single anchor chosen to represent
// its navigable target.
type Link struct {
	Node dom.Node
	Href string
}

// PrimaryLink selects the best anchor from one record container.
//
// Priority: the container itself when it is a visible anchor; otherwise the
// descendant anchor with the longest visible text, ties broken by larger
// bounding box. Anchors that are invisible, lack an href, or point at a
// javascript:void placeholder are discarded, as are those with neither
// meaningful text/title nor reasonable size.
//
// ok is false when no anchor qualifies — a normal outcome that callers meet
// with a retry policy, not a fault. The returned error is non-nil only when
// the container handle itself is stale.
func PrimaryLink(container dom.Node) (Link, bool, error) {
	tag, err := container.Tag()
	if err != nil {
		return Link{}, false, containerErr(err)
	}
	if tag == "a" {
		if href, ok, err := container.Href(); err != nil {
			return Link{}, false, containerErr(err)
		} else if ok {
			if visible, err := container.Visible(); err != nil {
				return Link{}, false, containerErr(err)
			} else if visible {
				return Link{Node: container, Href: href}, true, nil
			}
		}
	}

	anchors, err := container.Anchors()
	if err != nil {
		return Link{}, false, containerErr(err)
	}

	type candidate struct {
		link    Link
		textLen int
		area    float64
	}
	var candidates []candidate
	for _, a := range anchors {
		// A single vanished anchor does not disqualify its siblings.
		visible, err := a.Visible()
		if err != nil || !visible {
			continue
		}
		href, ok, err := a.Href()
		if err != nil || !ok || strings.Contains(href, "javascript:void") {
			continue
		}
		text, err := a.Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		title, _, err := a.Attr("title")
		if err != nil {
			continue
		}

		if len(text) <= minMeaningfulText && len(title) <= minMeaningfulText &&
			!reasonableSize(a, container) {
			continue
		}
		box, err := a.Box()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			link:    Link{Node: a, Href: href},
			textLen: len(text),
			area:    box.Area(),
		})
	}

	if len(candidates) == 0 {
		return Link{}, false, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].textLen != candidates[j].textLen {
			return candidates[i].textLen > candidates[j].textLen
		}
		return candidates[i].area > candidates[j].area
	})
	return candidates[0].link, true, nil
}

// reasonableSize reports whether the anchor's own box is at least
// minLinkSide square, or, failing that, whether its container is big enough
// to vouch for it (image tiles often wrap a tiny anchor in a large card).
func reasonableSize(a dom.Node, container dom.Node) bool {
	box, err := a.Box()
	if err != nil {
		return false
	}
	if box.Width >= minLinkSide && box.Height >= minLinkSide {
		return true
	}
	parent, err := container.Box()
	if err != nil {
		return false
	}
	return parent.Width > minParentSide && parent.Height > minParentSide
}

// containerErr propagates staleness of the container handle; any other read
// fault on the container is treated as "no anchor qualifies".
func containerErr(err error) error {
	if errors.Is(err, dom.ErrStale) {
		return err
	}
	return nil
}
