package research

import (
	"sort"
	"strings"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

// dedupePrefixRunes is how much of an item's text decides duplication.
const dedupePrefixRunes = 50

// Dedupe drops items whose lowercased first 50 characters match an earlier
// item, then sorts by confidence descending. The first occurrence wins even
// when a later duplicate has higher confidence.
func Dedupe(items []engine.InsightItem) []engine.InsightItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]engine.InsightItem, 0, len(items))
	for _, it := range items {
		key := dedupeKey(it.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	sortByConfidence(out)
	return out
}

func dedupeKey(text string) string {
	return strings.ToLower(engine.RunePrefix(text, dedupePrefixRunes))
}

func sortByConfidence(items []engine.InsightItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Confidence > items[j].Confidence
	})
}

// top returns at most n items without copying the backing array.
func top(items []engine.InsightItem, n int) []engine.InsightItem {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
