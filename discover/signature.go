// Package discover locates the repeating record containers on a rendered
// listing page without site-specific selectors. It clusters elements by
// normalized class signature, extracts one primary link per container, and
// compensates for lazy-loaded content with scroll-retry.
package discover

import (
	"slices"
	"strings"
)

// Signature is a normalized set of CSS class tokens used as a clustering
// key: tokens are trimmed, empties removed, and the set sorted, so elements
// with permuted but identical token sets collapse to one signature.
type Signature struct {
	tokens []string
}

// NewSignature normalizes raw class tokens into a Signature. ok is false
// when no tokens survive normalization.
func NewSignature(classTokens []string) (Signature, bool) {
	tokens := make([]string, 0, len(classTokens))
	for _, t := range classTokens {
		t = strings.TrimSpace(t)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return Signature{}, false
	}
	slices.Sort(tokens)
	tokens = slices.Compact(tokens)
	return Signature{tokens: tokens}, true
}

// Key returns a canonical string form usable as a map key.
func (s Signature) Key() string { return strings.Join(s.tokens, " ") }

// Selector returns the CSS selector matching elements that carry every
// token of the signature.
func (s Signature) Selector() string {
	return "." + strings.Join(s.tokens, ".")
}

// IsZero reports whether the signature holds no tokens.
func (s Signature) IsZero() bool { return len(s.tokens) == 0 }

func (s Signature) String() string { return s.Selector() }
