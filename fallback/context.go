package fallback

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

func newConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// PrepareContext turns raw page HTML into compact markdown suitable for a
// model prompt: truncate to maxBytes, drop script/style/noscript subtrees,
// sanitize, then convert. Any stage failing falls back to the truncated raw
// text rather than losing the page entirely.
func PrepareContext(raw string, maxBytes int) string {
	if raw == "" {
		return ""
	}
	if maxBytes > 0 && len(raw) > maxBytes {
		raw = raw[:maxBytes]
	}

	stripped, err := stripNonContent(raw)
	if err != nil {
		stripped = raw
	}
	clean := bluemonday.UGCPolicy().Sanitize(stripped)

	md, err := newConverter().ConvertString(clean)
	if err != nil || strings.TrimSpace(md) == "" {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(md)
}

var dropTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"iframe":   {},
	"svg":      {},
}

// stripNonContent removes subtrees that carry no prose and inflate the
// prompt.
func stripNonContent(raw string) (string, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	prune(doc)
	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func prune(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.ElementNode {
			if _, drop := dropTags[child.Data]; drop {
				n.RemoveChild(child)
				child = next
				continue
			}
		}
		prune(child)
		child = next
	}
}
