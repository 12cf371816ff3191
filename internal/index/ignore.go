package index

import (
	"path/filepath"
	"strings"
)

// matchesAny reports whether candidate matches any of patterns, using
// shell-style glob matching (filepath.Match: *, ?, character classes).
// Grounded on internal/watcher/filter.go's pattern matching in the teacher
// repo, simplified to match a single rendered string (a path segment or a
// full path) rather than splitting into path components -- the glob
// semantics described in the wire contract operate on "the candidate path
// rendered as a lossy string", not per-component. Separators are treated
// as ordinary characters, so * also matches across them ("*.log" matches
// "/var/app/x.log").
func matchesAny(patterns []string, candidate string) bool {
	sep := string(filepath.Separator)
	candidate = strings.ReplaceAll(candidate, sep, "\x00")
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(strings.ReplaceAll(pattern, sep, "\x00"), candidate); matched {
			return true
		}
	}
	return false
}
