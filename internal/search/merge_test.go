package search

import (
	"testing"
	"time"

	"github.com/cg-assist/backend/internal/catalog"
)

func score(v float64) *float64 { return &v }

func result(id int64, sim *float64, modified time.Time) catalog.SearchResult {
	return catalog.SearchResult{
		FileID:       id,
		FileName:     "file",
		Similarity:   sim,
		ModifiedDate: modified,
	}
}

func ids(results []catalog.SearchResult) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.FileID
	}
	return out
}

func TestMerge(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("deduplicates by file id", func(t *testing.T) {
		merged := Merge(0,
			[]catalog.SearchResult{result(1, score(0.5), base)},
			[]catalog.SearchResult{result(1, score(0.5), base), result(2, score(0.4), base)},
		)
		if len(merged) != 2 {
			t.Fatalf("Merge() returned %d results, want 2", len(merged))
		}
	})

	t.Run("scored occurrence beats unscored", func(t *testing.T) {
		merged := Merge(0,
			[]catalog.SearchResult{result(1, nil, base)},
			[]catalog.SearchResult{result(1, score(0.8), base)},
		)
		if len(merged) != 1 {
			t.Fatalf("Merge() returned %d results, want 1", len(merged))
		}
		if merged[0].Similarity == nil || *merged[0].Similarity != 0.8 {
			t.Errorf("Merge() kept unscored occurrence, want similarity 0.8")
		}
	})

	t.Run("higher score wins", func(t *testing.T) {
		merged := Merge(0,
			[]catalog.SearchResult{result(1, score(0.3), base)},
			[]catalog.SearchResult{result(1, score(0.9), base)},
		)
		if *merged[0].Similarity != 0.9 {
			t.Errorf("Merge() similarity = %v, want 0.9", *merged[0].Similarity)
		}
	})

	t.Run("scored results rank before unscored", func(t *testing.T) {
		merged := Merge(0,
			[]catalog.SearchResult{result(1, nil, base.Add(time.Hour))},
			[]catalog.SearchResult{result(2, score(0.1), base)},
		)
		got := ids(merged)
		if got[0] != 2 || got[1] != 1 {
			t.Errorf("Merge() order = %v, want [2 1]", got)
		}
	})

	t.Run("unscored ordered by recency", func(t *testing.T) {
		merged := Merge(0,
			[]catalog.SearchResult{result(1, nil, base)},
			[]catalog.SearchResult{result(2, nil, base.Add(time.Hour))},
		)
		got := ids(merged)
		if got[0] != 2 || got[1] != 1 {
			t.Errorf("Merge() order = %v, want [2 1]", got)
		}
	})

	t.Run("equal scores break by newer modification then lower id", func(t *testing.T) {
		merged := Merge(0, []catalog.SearchResult{
			result(5, score(0.7), base),
			result(3, score(0.7), base.Add(time.Hour)),
			result(2, score(0.7), base),
		})
		got := ids(merged)
		want := []int64{3, 2, 5}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Merge() order = %v, want %v", got, want)
			}
		}
	})

	t.Run("limit applies after merge", func(t *testing.T) {
		merged := Merge(2,
			[]catalog.SearchResult{result(1, score(0.9), base), result(2, score(0.2), base)},
			[]catalog.SearchResult{result(2, score(0.8), base), result(3, score(0.5), base)},
		)
		got := ids(merged)
		if len(got) != 2 {
			t.Fatalf("Merge() returned %d results, want 2", len(got))
		}
		if got[0] != 1 || got[1] != 2 {
			t.Errorf("Merge() order = %v, want [1 2]", got)
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		if merged := Merge(10); len(merged) != 0 {
			t.Errorf("Merge() of nothing returned %d results", len(merged))
		}
	})
}
