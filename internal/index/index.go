package index

import (
	"log"
	"os"
	"path/filepath"

	"github.com/anthropic/kidex/internal/config"
	"github.com/anthropic/kidex/internal/registry"
)

// Index is the mutable handle -> node map. It is not safe for concurrent
// use by itself; the event loop (internal/daemon) is its single mutator and
// guards every call -- including reads made on behalf of the IPC server --
// with one mutex, per the concurrency model.
type Index struct {
	nodes map[registry.WatchHandle]*DirectoryNode
}

// New returns an empty Index.
func New() *Index {
	return &Index{nodes: make(map[registry.WatchHandle]*DirectoryNode)}
}

// Lookup returns the node for h, if present.
func (idx *Index) Lookup(h registry.WatchHandle) (*DirectoryNode, bool) {
	n, ok := idx.nodes[h]
	return n, ok
}

// Roots returns the handle of every node configured as a root (no parent),
// along with its node.
func (idx *Index) Roots() map[registry.WatchHandle]*DirectoryNode {
	roots := make(map[registry.WatchHandle]*DirectoryNode)
	for h, n := range idx.nodes {
		if !n.HasParent {
			roots[h] = n
		}
	}
	return roots
}

// All returns every handle currently in the index, paired with its node.
func (idx *Index) All() map[registry.WatchHandle]*DirectoryNode {
	return idx.nodes
}

// ResolvePath returns the absolute path of the node identified by h,
// walking parent links. If a handle along the chain is missing from the
// index (a transient race with an already-removed watch), it logs a
// warning and returns the prefix accumulated so far.
func (idx *Index) ResolvePath(h registry.WatchHandle) string {
	var segments []string

	cur := h
	for {
		n, ok := idx.nodes[cur]
		if !ok {
			log.Printf("index: unknown handle %d while resolving path", cur)
			break
		}
		segments = append(segments, n.PathSegment)
		if !n.HasParent {
			break
		}
		cur = n.Parent
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return filepath.Join(segments...)
}

// Traverse returns the set of all handles reachable from h by following
// Directory children's watch handles transitively, including h itself.
func (idx *Index) Traverse(h registry.WatchHandle) []registry.WatchHandle {
	queue := []registry.WatchHandle{h}
	var out []registry.WatchHandle

	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		n, ok := idx.nodes[cur]
		if !ok {
			continue
		}
		out = append(out, cur)

		for _, child := range n.Children {
			if child.IsDir && child.HasWatch {
				queue = append(queue, child.Watch)
			}
		}
	}
	return out
}

// Clear removes every watch from the registry and empties the index.
func (idx *Index) Clear(reg *registry.Registry) {
	for h := range idx.nodes {
		if err := reg.Remove(h); err != nil {
			log.Printf("index: removing watch %d: %v", h, err)
		}
	}
	idx.nodes = make(map[registry.WatchHandle]*DirectoryNode)
}

// FullIndex clears the index and reindexes every configured root. A
// failure indexing one root is logged and does not prevent the others from
// being indexed -- full reindex is all-or-none per root, not globally.
func (idx *Index) FullIndex(reg *registry.Registry, cfg *config.Config) {
	log.Println("index: starting full index")
	idx.Clear(reg)

	for _, wd := range cfg.Directories {
		merged := wd
		merged.Ignored = cfg.EffectiveIgnored(wd)

		if err := idx.indexRoot(reg, merged); err != nil {
			log.Printf("index: skipping root %q: %v", wd.Path, err)
		}
	}

	log.Println("index: full index done")
}

// indexRoot registers and indexes a single configured root. Its own
// registration failure aborts only this root; failures further down
// degrade to unwatched entries.
func (idx *Index) indexRoot(reg *registry.Registry, wd config.WatchDir) error {
	if matchesAny(wd.Ignored, wd.Path) {
		return nil
	}

	h, err := reg.Add(wd.Path)
	if err != nil {
		return err
	}

	idx.nodes[h] = newNode(wd.Path, wd, 0, false)
	idx.indexChildren(reg, h, wd.Path, wd)
	return nil
}

// indexChildren enumerates the entries of fullPath (the resolved path of
// handle) and records each as a File or Directory child of handle's node,
// recursing into subdirectories when wd.Recurse is enabled and the
// subdirectory's own watch registration succeeds.
func (idx *Index) indexChildren(reg *registry.Registry, handle registry.WatchHandle, fullPath string, wd config.WatchDir) {
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		log.Printf("index: reading %q: %v", fullPath, err)
		return
	}

	node := idx.nodes[handle]

	for _, entry := range entries {
		name := entry.Name()
		if matchesAny(wd.Ignored, name) {
			continue
		}

		childFull := filepath.Join(fullPath, name)
		info, err := entry.Info()
		if err != nil {
			log.Printf("index: stat %q: %v", childFull, err)
			continue
		}

		switch {
		case info.IsDir() && wd.Recurse:
			childHandle, err := reg.Add(childFull)
			if err != nil {
				log.Printf("index: watching %q: %v", childFull, err)
				node.Children[name] = Dir(0, false)
				continue
			}
			idx.nodes[childHandle] = newNode(name, wd, handle, true)
			node.Children[name] = Dir(childHandle, true)
			idx.indexChildren(reg, childHandle, childFull, wd)

		case info.IsDir():
			node.Children[name] = Dir(0, false)

		case info.Mode().IsRegular():
			node.Children[name] = File()

		default:
			log.Printf("index: skipping non-file, non-directory entry %q", childFull)
		}
	}
}

// IncrementalCreate handles a CREATE or MOVED_TO event: name p was added to
// the directory identified by parent.
func (idx *Index) IncrementalCreate(reg *registry.Registry, parent registry.WatchHandle, name string) {
	parentNode, ok := idx.nodes[parent]
	if !ok {
		log.Printf("index: incremental create on unknown handle %d", parent)
		return
	}

	fullPath := filepath.Join(idx.ResolvePath(parent), name)
	if matchesAny(parentNode.WatchConfig.Ignored, fullPath) {
		return
	}

	info, err := os.Lstat(fullPath)
	if err != nil {
		log.Printf("index: stat %q: %v", fullPath, err)
		return
	}

	switch {
	case info.IsDir() && parentNode.WatchConfig.Recurse:
		childHandle, err := reg.Add(fullPath)
		if err != nil {
			log.Printf("index: watching %q: %v", fullPath, err)
			parentNode.Children[name] = Dir(0, false)
			return
		}
		idx.nodes[childHandle] = newNode(name, parentNode.WatchConfig, parent, true)
		parentNode.Children[name] = Dir(childHandle, true)
		idx.indexChildren(reg, childHandle, fullPath, parentNode.WatchConfig)

	case info.IsDir():
		parentNode.Children[name] = Dir(0, false)

	case info.Mode().IsRegular():
		parentNode.Children[name] = File()

	default:
		log.Printf("index: ignoring non-file, non-directory entry %q", fullPath)
	}
}

// IncrementalRemove handles a DELETE or MOVED_FROM event: name p was
// removed from the directory identified by parent. If p was a watched
// directory, its whole subtree's watches are torn down atomically.
func (idx *Index) IncrementalRemove(reg *registry.Registry, parent registry.WatchHandle, name string) {
	parentNode, ok := idx.nodes[parent]
	if !ok {
		log.Printf("index: incremental remove on unknown handle %d", parent)
		return
	}

	child, ok := parentNode.Children[name]
	if !ok {
		log.Printf("index: %q asked to be un-indexed under handle %d, but it was not indexed", name, parent)
		return
	}

	if child.IsDir && child.HasWatch {
		for _, h := range idx.Traverse(child.Watch) {
			if err := reg.Remove(h); err != nil {
				log.Printf("index: removing watch %d: %v", h, err)
			}
			delete(idx.nodes, h)
		}
	}

	delete(parentNode.Children, name)
}
