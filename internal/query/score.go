package query

import (
	"path/filepath"
	"strings"

	"github.com/anthropic/kidex/internal/index"
)

// Elimination sentinels. Magnitudes are part of the contract: debug output
// and tests depend on these exact values.
const (
	eliminatedType         = -8888
	eliminatedBasename     = -2222
	eliminatedNoPathMatch  = -5555
	eliminatedDirectParent = -9999
)

// Score computes the additive score of entry against query, short-
// circuiting to a negative sentinel the moment an elimination rule fires.
// Parameters are applied in a fixed order -- type, basename keywords,
// path keywords, direct parent -- whatever order the tokens were given in.
func Score(q Query, entry index.Entry) int {
	basename := filepath.Base(entry.Path)
	score := 0

	switch q.FileType {
	case TypeFilesOnly:
		if entry.Directory {
			return eliminatedType
		}
	case TypeDirOnly:
		if !entry.Directory {
			return eliminatedType
		}
	}

	for _, kw := range q.Keywords {
		switch {
		case !kw.Exact && kw.StartsWith(basename):
			score += 50
		case kw.IsIn(basename):
			score += 10
		default:
			return eliminatedBasename
		}
	}

	for _, pkw := range q.PathKeywords {
		matched := false
		backdepth := 20
		components := strings.Split(filepath.Clean(entry.Path), string(filepath.Separator))
		// Walk path components other than the basename, deepest first.
		for i := len(components) - 2; i >= 0; i-- {
			if pkw.IsIn(components[i]) {
				matched = true
				score += backdepth
			}
			backdepth -= 4
		}
		if !matched {
			return eliminatedNoPathMatch
		}
	}

	if q.DirectParent != nil {
		parentName := filepath.Base(filepath.Dir(entry.Path))
		if q.DirectParent.IsIn(parentName) {
			score++
		} else {
			return eliminatedDirectParent
		}
	}

	return score
}
