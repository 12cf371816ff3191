package query

import "testing"

func TestParseFileTypeMarkers(t *testing.T) {
	cases := []struct {
		tokens []string
		want   FileType
	}{
		{[]string{"/"}, TypeDirOnly},
		{[]string{"f/"}, TypeFilesOnly},
		{[]string{"main.rs"}, TypeAll},
	}
	for _, c := range cases {
		q := Parse(c.tokens, CaseSmart)
		if q.FileType != c.want {
			t.Errorf("Parse(%v).FileType = %v, want %v", c.tokens, q.FileType, c.want)
		}
	}
}

func TestParseDirectParentMarker(t *testing.T) {
	q := Parse([]string{"//src"}, CaseSmart)
	if q.DirectParent == nil {
		t.Fatalf("expected a direct-parent keyword")
	}
	if q.DirectParent.Word != "src" {
		t.Errorf("DirectParent.Word = %q, want %q", q.DirectParent.Word, "src")
	}
	if q.DirectParent.Exact {
		t.Errorf("expected non-exact direct-parent keyword for //src")
	}
}

func TestParsePathKeywordMarker(t *testing.T) {
	q := Parse([]string{"/src/"}, CaseSmart)
	if len(q.PathKeywords) != 1 {
		t.Fatalf("expected one path keyword, got %d", len(q.PathKeywords))
	}
	kw := q.PathKeywords[0]
	if kw.Word != "src" || !kw.Exact {
		t.Errorf("path keyword = %+v, want word=src exact=true", kw)
	}
}

func TestParseBareKeywordIsBasename(t *testing.T) {
	q := Parse([]string{"main.rs"}, CaseSmart)
	if len(q.Keywords) != 1 || q.Keywords[0].Word != "main.rs" {
		t.Fatalf("expected a single basename keyword, got %+v", q.Keywords)
	}
}

func TestKeywordSmartCaseFollowsWordCase(t *testing.T) {
	lower := NewKeyword("main", false, CaseSmart)
	if lower.resolvedCaseMode() != CaseIgnore {
		t.Errorf("lowercase word under smart case should resolve to CaseIgnore")
	}
	mixed := NewKeyword("Main", false, CaseSmart)
	if mixed.resolvedCaseMode() != CaseMatch {
		t.Errorf("mixed-case word under smart case should resolve to CaseMatch")
	}
}

func TestKeywordIsInExactVsSubstring(t *testing.T) {
	exact := NewKeyword("main.rs/", true, CaseIgnore)
	if !exact.IsIn("main.rs") {
		t.Errorf("expected exact match on equal strings")
	}
	if exact.IsIn("main.rs.bak") {
		t.Errorf("exact keyword must not substring-match")
	}

	substr := NewKeyword("main", false, CaseIgnore)
	if !substr.IsIn("main.rs") {
		t.Errorf("expected substring match")
	}
}

func TestParseStringSplitsOnWhitespace(t *testing.T) {
	q := ParseString("f/ main.rs //src", CaseSmart)
	if q.FileType != TypeFilesOnly {
		t.Errorf("expected files-only file type")
	}
	if len(q.Keywords) != 1 || q.Keywords[0].Word != "main.rs" {
		t.Errorf("expected basename keyword main.rs, got %+v", q.Keywords)
	}
	if q.DirectParent == nil || q.DirectParent.Word != "src" {
		t.Errorf("expected direct parent src, got %+v", q.DirectParent)
	}
}
