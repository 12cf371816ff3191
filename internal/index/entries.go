package index

import (
	"path/filepath"

	"github.com/anthropic/kidex/internal/registry"
)

// Entry is the boundary type returned to IPC clients: a path plus whether
// it names a directory.
type Entry struct {
	Path      string `json:"path"`
	Directory bool   `json:"directory"`
}

// FlatChildren returns every child across every indexed directory node,
// each entry's Path set to the child's own segment alone -- not an
// absolute path. This reproduces the documented boundary quirk of
// GetIndex with no path argument.
func (idx *Index) FlatChildren() []Entry {
	var out []Entry
	for _, n := range idx.nodes {
		for name, child := range n.Children {
			out = append(out, Entry{Path: name, Directory: child.IsDir})
		}
	}
	return out
}

// DescendantsAbsolute returns every descendant of root (root's own
// children and, transitively, the children of any watched subdirectory),
// each entry carrying its full absolute path.
func (idx *Index) DescendantsAbsolute(root registry.WatchHandle) []Entry {
	var out []Entry
	for _, h := range idx.Traverse(root) {
		n, ok := idx.nodes[h]
		if !ok {
			continue
		}
		parentPath := idx.ResolvePath(h)
		for name, child := range n.Children {
			out = append(out, Entry{
				Path:      filepath.Join(parentPath, name),
				Directory: child.IsDir,
			})
		}
	}
	return out
}

// FindRoot returns the handle of the configured root whose own path equals
// path, if any.
func (idx *Index) FindRoot(path string) (registry.WatchHandle, bool) {
	for h, n := range idx.nodes {
		if !n.HasParent && n.PathSegment == path {
			return h, true
		}
	}
	return 0, false
}

// AllEntries returns every child across every indexed directory node with
// its full absolute path -- the candidate set the query scorer runs over.
func (idx *Index) AllEntries() []Entry {
	var out []Entry
	for h, n := range idx.nodes {
		parentPath := idx.ResolvePath(h)
		for name, child := range n.Children {
			out = append(out, Entry{
				Path:      filepath.Join(parentPath, name),
				Directory: child.IsDir,
			})
		}
	}
	return out
}
