package discover

import (
	"log/slog"
	"sort"

	"github.com/gleanware/glean/dom"
)

// containerSelector enumerates the generic tag kinds that wrap repeating
// records across sites.
const containerSelector = "li, div, article, section"

// Cluster is one class signature and the number of visible elements that
// carry it.
type Cluster struct {
	Signature Signature
	Count     int
}

// ClusterByClass scans the page's list-like elements and groups the visible
// ones by normalized class signature. Only signatures occurring at least
// minFreq times are returned, sorted by descending frequency. Repeating UI
// records share a signature, so the most frequent qualifying one is the
// strongest candidate for the record list.
//
// Per-element read failures are skipped: an element that vanished mid-scan
// is not evidence against the remaining ones.
func ClusterByClass(acc dom.Accessor, minFreq int, logger *slog.Logger) ([]Cluster, error) {
	elements, err := acc.Query(containerSelector)
	if err != nil {
		return nil, err
	}
	logger.Debug("discover: scanning elements for repeated classes", "count", len(elements))

	counts := make(map[string]int)
	sigs := make(map[string]Signature)
	for _, el := range elements {
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		classes, err := el.Classes()
		if err != nil {
			continue
		}
		sig, ok := NewSignature(classes)
		if !ok {
			continue
		}
		key := sig.Key()
		counts[key]++
		sigs[key] = sig
	}

	clusters := make([]Cluster, 0, len(counts))
	for key, count := range counts {
		if count >= minFreq {
			clusters = append(clusters, Cluster{Signature: sigs[key], Count: count})
		}
	}
	// Ties break on key so ordering is stable across runs.
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].Signature.Key() < clusters[j].Signature.Key()
	})

	logger.Debug("discover: frequent class signatures", "qualifying", len(clusters), "min_freq", minFreq)
	return clusters, nil
}
