package query

import (
	"testing"

	"github.com/anthropic/kidex/internal/index"
)

func entry(name string) index.Entry {
	return index.Entry{Path: name}
}

func TestSortAscendingIsStableOnTies(t *testing.T) {
	in := []Scored{
		{Score: 5, Entry: entry("A")},
		{Score: 3, Entry: entry("D")},
		{Score: 5, Entry: entry("B")},
		{Score: 5, Entry: entry("C")},
	}
	SortAscending(in)

	want := []string{"D", "A", "B", "C"}
	for i, w := range want {
		if in[i].Entry.Path != w {
			t.Fatalf("position %d = %q, want %q (got order %v)", i, in[i].Entry.Path, w, names(in))
		}
	}
}

func TestPickTopStableOnTies(t *testing.T) {
	in := []Scored{
		{Score: 5, Entry: entry("A")},
		{Score: 5, Entry: entry("B")},
		{Score: 5, Entry: entry("C")},
		{Score: 3, Entry: entry("D")},
	}
	top := PickTop(in, 2)
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	if top[0].Entry.Path != "A" || top[1].Entry.Path != "B" {
		t.Errorf("top = %v, want [A B]", names(top))
	}
}

func TestPickTopDropsLowerScores(t *testing.T) {
	in := []Scored{
		{Score: 1, Entry: entry("low")},
		{Score: 9, Entry: entry("high")},
		{Score: 5, Entry: entry("mid")},
	}
	top := PickTop(in, 2)
	if len(top) != 2 || top[0].Entry.Path != "high" || top[1].Entry.Path != "mid" {
		t.Errorf("top = %v, want [high mid]", names(top))
	}
}

func TestPickTopWithLimitGreaterThanLenReturnsAllSorted(t *testing.T) {
	in := []Scored{
		{Score: 1, Entry: entry("low")},
		{Score: 9, Entry: entry("high")},
	}
	top := PickTop(in, 10)
	if len(top) != 2 || top[0].Entry.Path != "high" || top[1].Entry.Path != "low" {
		t.Errorf("top = %v, want [high low]", names(top))
	}
}

func names(s []Scored) []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.Entry.Path
	}
	return out
}
