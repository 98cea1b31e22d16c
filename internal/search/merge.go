package search

import (
	"sort"

	"github.com/cg-assist/backend/internal/catalog"
)

// Merge combines result sequences from multiple strategies into one ranked
// sequence, deduplicated by file identity. When the same file appears twice,
// the scored occurrence beats the unscored one and the higher score beats the
// lower. Scored results rank before unscored ones; ties break by more recent
// modification time, then by lower file id. The limit is applied after the
// merge, not per input.
func Merge(limit int, lists ...[]catalog.SearchResult) []catalog.SearchResult {
	byID := make(map[int64]catalog.SearchResult)
	var order []int64

	for _, list := range lists {
		for _, r := range list {
			existing, seen := byID[r.FileID]
			if !seen {
				byID[r.FileID] = r
				order = append(order, r.FileID)
				continue
			}
			if better(r, existing) {
				byID[r.FileID] = r
			}
		}
	}

	merged := make([]catalog.SearchResult, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return ranksBefore(merged[i], merged[j])
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// better reports whether a should replace b for the same file identity.
func better(a, b catalog.SearchResult) bool {
	switch {
	case a.Similarity != nil && b.Similarity == nil:
		return true
	case a.Similarity == nil:
		return false
	default:
		return *a.Similarity > *b.Similarity
	}
}

// ranksBefore orders merged results: by score descending where both are
// scored, scored before unscored, otherwise by recency; ties break by newer
// modification time then lower file id so rankings are deterministic.
func ranksBefore(a, b catalog.SearchResult) bool {
	switch {
	case a.Similarity != nil && b.Similarity != nil:
		if *a.Similarity != *b.Similarity {
			return *a.Similarity > *b.Similarity
		}
	case a.Similarity != nil:
		return true
	case b.Similarity != nil:
		return false
	}
	if !a.ModifiedDate.Equal(b.ModifiedDate) {
		return a.ModifiedDate.After(b.ModifiedDate)
	}
	return a.FileID < b.FileID
}
