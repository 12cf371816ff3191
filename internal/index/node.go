// Package index maintains the live, mutable snapshot of the configured
// directory trees: a map from watch handle to directory node, kept
// consistent as the registry delivers create/delete/move events.
package index

import (
	"github.com/anthropic/kidex/internal/config"
	"github.com/anthropic/kidex/internal/registry"
)

// ChildKind tags what an entry in a DirectoryNode's children map is.
type ChildKind struct {
	IsDir bool
	// Watch is set only when IsDir is true and the subdirectory is itself
	// indexed -- either because recursion is enabled and registration
	// succeeded, or because the entry is a configured root.
	Watch    registry.WatchHandle
	HasWatch bool
}

// File is the ChildKind for a plain file.
func File() ChildKind { return ChildKind{IsDir: false} }

// Dir is the ChildKind for a directory, optionally carrying its own watch
// handle when the subtree is live.
func Dir(h registry.WatchHandle, watched bool) ChildKind {
	return ChildKind{IsDir: true, Watch: h, HasWatch: watched}
}

// DirectoryNode is the record stored in the index under a WatchHandle.
type DirectoryNode struct {
	// PathSegment is the node's own name: a single path component for
	// non-root nodes, or the configured absolute path for a root.
	PathSegment string
	Children    map[string]ChildKind
	// Parent is the WatchHandle of the node's parent in the index. Absent
	// (HasParent == false) for nodes that are configured roots.
	Parent    registry.WatchHandle
	HasParent bool
	// WatchConfig is the WatchDir governing this subtree (ignore patterns,
	// recursion flag).
	WatchConfig config.WatchDir
}

func newNode(segment string, cfg config.WatchDir, parent registry.WatchHandle, hasParent bool) *DirectoryNode {
	return &DirectoryNode{
		PathSegment: segment,
		Children:    make(map[string]ChildKind),
		Parent:      parent,
		HasParent:   hasParent,
		WatchConfig: cfg,
	}
}
