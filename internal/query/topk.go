package query

import (
	"sort"

	"github.com/anthropic/kidex/internal/index"
)

// Scored pairs a computed score with the entry it was computed for.
type Scored struct {
	Score int
	Entry index.Entry
}

// SortAscending sorts entries by score ascending, stable so that entries
// with equal scores retain their input order (filesystem enumeration
// order). Used for the unlimited result path.
func SortAscending(entries []Scored) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score < entries[j].Score
	})
}

// PickTop returns the n highest-scoring entries from entries, highest
// first, stable (equal-scored entries retain input order). If
// len(entries) <= n, the whole (sorted) slice is returned.
//
// When n is at least len(entries), a plain stable descending sort is
// used. Otherwise a running top-n list is maintained: an incoming pair is
// discarded outright if its score is below the current worst kept score,
// and otherwise inserted at the position that preserves descending order,
// dropping the tail if the list grows past n.
func PickTop(entries []Scored, n int) []Scored {
	if len(entries) <= n {
		out := make([]Scored, len(entries))
		copy(out, entries)
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Score > out[j].Score
		})
		return out
	}

	top := make([]Scored, 0, n)
	for _, e := range entries {
		if len(top) == n && e.Score < top[n-1].Score {
			continue
		}
		pos := sort.Search(len(top), func(i int) bool {
			return top[i].Score < e.Score
		})
		top = append(top, Scored{})
		copy(top[pos+1:], top[pos:])
		top[pos] = e
		if len(top) > n {
			top = top[:n]
		}
	}
	return top
}
