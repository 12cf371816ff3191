package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anthropic/kidex/internal/config"
	"github.com/anthropic/kidex/internal/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New()
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestFullIndexBuildsTreeRecursively(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "a", "b"))
	mustWrite(t, filepath.Join(root, "a", "b", "foo.txt"), "x")
	mustWrite(t, filepath.Join(root, "top.txt"), "x")

	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{
		Directories: []config.WatchDir{{Path: root, Recurse: true}},
	}
	idx.FullIndex(reg, cfg)

	rootHandle, ok := idx.FindRoot(root)
	if !ok {
		t.Fatalf("root %q not found in index", root)
	}

	rootNode, ok := idx.Lookup(rootHandle)
	if !ok {
		t.Fatalf("root node missing")
	}
	if _, ok := rootNode.Children["top.txt"]; !ok {
		t.Errorf("expected top.txt in root children: %+v", rootNode.Children)
	}
	aChild, ok := rootNode.Children["a"]
	if !ok || !aChild.IsDir || !aChild.HasWatch {
		t.Fatalf("expected watched directory child 'a', got %+v", aChild)
	}

	aNode, ok := idx.Lookup(aChild.Watch)
	if !ok {
		t.Fatalf("a's node missing from index")
	}
	bChild, ok := aNode.Children["b"]
	if !ok || !bChild.IsDir || !bChild.HasWatch {
		t.Fatalf("expected watched directory child 'b', got %+v", bChild)
	}
	bNode, ok := idx.Lookup(bChild.Watch)
	if !ok {
		t.Fatalf("b's node missing from index")
	}
	if _, ok := bNode.Children["foo.txt"]; !ok {
		t.Errorf("expected foo.txt under a/b: %+v", bNode.Children)
	}
}

func TestFullIndexNonRecursiveSkipsChildren(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "sub"))

	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{
		Directories: []config.WatchDir{{Path: root, Recurse: false}},
	}
	idx.FullIndex(reg, cfg)

	rootHandle, _ := idx.FindRoot(root)
	rootNode, _ := idx.Lookup(rootHandle)
	subChild, ok := rootNode.Children["sub"]
	if !ok {
		t.Fatalf("expected sub to be recorded")
	}
	if !subChild.IsDir || subChild.HasWatch {
		t.Errorf("expected unwatched directory child, got %+v", subChild)
	}
}

func TestFullIndexSkipsIgnoredRoot(t *testing.T) {
	root := t.TempDir()
	ignoredRoot := filepath.Join(root, "ignored")
	mustMkdir(t, ignoredRoot)

	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{
		Directories: []config.WatchDir{{Path: ignoredRoot, Recurse: true, Ignored: []string{"*ignored*"}}},
	}
	idx.FullIndex(reg, cfg)

	if _, ok := idx.FindRoot(ignoredRoot); ok {
		t.Errorf("expected ignored root to be skipped")
	}
}

func TestFullIndexSkipsIgnoredChild(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "keep.txt"), "x")
	mustWrite(t, filepath.Join(root, "skip.log"), "x")

	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{
		Directories: []config.WatchDir{{Path: root, Recurse: true}},
		Ignored:     []string{"*.log"},
	}
	idx.FullIndex(reg, cfg)

	rootHandle, _ := idx.FindRoot(root)
	rootNode, _ := idx.Lookup(rootHandle)
	if _, ok := rootNode.Children["skip.log"]; ok {
		t.Errorf("expected skip.log to be ignored")
	}
	if _, ok := rootNode.Children["keep.txt"]; !ok {
		t.Errorf("expected keep.txt to be indexed")
	}
}

func TestIncrementalCreateFile(t *testing.T) {
	root := t.TempDir()
	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{Directories: []config.WatchDir{{Path: root, Recurse: true}}}
	idx.FullIndex(reg, cfg)

	rootHandle, _ := idx.FindRoot(root)
	mustWrite(t, filepath.Join(root, "new.txt"), "x")
	idx.IncrementalCreate(reg, rootHandle, "new.txt")

	rootNode, _ := idx.Lookup(rootHandle)
	child, ok := rootNode.Children["new.txt"]
	if !ok || child.IsDir {
		t.Errorf("expected new.txt recorded as a file, got %+v", child)
	}
}

func TestIncrementalCreateDirectoryUnderNonRecursiveRoot(t *testing.T) {
	root := t.TempDir()
	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{Directories: []config.WatchDir{{Path: root, Recurse: false}}}
	idx.FullIndex(reg, cfg)

	rootHandle, _ := idx.FindRoot(root)
	mustMkdir(t, filepath.Join(root, "new_dir"))
	idx.IncrementalCreate(reg, rootHandle, "new_dir")

	rootNode, _ := idx.Lookup(rootHandle)
	child, ok := rootNode.Children["new_dir"]
	if !ok || !child.IsDir || child.HasWatch {
		t.Fatalf("expected unwatched directory child, got %+v", child)
	}

	// A file created inside the unwatched subdirectory produces no watch
	// and there is no handle to post further incremental events against.
	mustWrite(t, filepath.Join(root, "new_dir", "file.txt"), "x")
	if _, ok := idx.Lookup(child.Watch); ok {
		t.Errorf("unwatched child must not resolve to a live handle")
	}
}

func TestIncrementalRemoveTearsDownSubtree(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "sub", "deeper"))
	mustWrite(t, filepath.Join(root, "sub", "deeper", "f.txt"), "x")

	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{Directories: []config.WatchDir{{Path: root, Recurse: true}}}
	idx.FullIndex(reg, cfg)

	rootHandle, _ := idx.FindRoot(root)
	rootNode, _ := idx.Lookup(rootHandle)
	subHandle := rootNode.Children["sub"].Watch

	if err := os.RemoveAll(filepath.Join(root, "sub")); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	idx.IncrementalRemove(reg, rootHandle, "sub")

	if _, ok := rootNode.Children["sub"]; ok {
		t.Errorf("expected sub removed from root's children")
	}
	if _, ok := idx.Lookup(subHandle); ok {
		t.Errorf("expected sub's handle removed from the index")
	}
}

func TestResolvePathWalksParentChain(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "a", "b"))

	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{Directories: []config.WatchDir{{Path: root, Recurse: true}}}
	idx.FullIndex(reg, cfg)

	rootHandle, _ := idx.FindRoot(root)
	rootNode, _ := idx.Lookup(rootHandle)
	aHandle := rootNode.Children["a"].Watch
	aNode, _ := idx.Lookup(aHandle)
	bHandle := aNode.Children["b"].Watch

	if got, want := idx.ResolvePath(bHandle), filepath.Join(root, "a", "b"); got != want {
		t.Errorf("ResolvePath = %q, want %q", got, want)
	}
}

func TestTraverseIncludesSelfAndDescendants(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "a", "b"))

	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{Directories: []config.WatchDir{{Path: root, Recurse: true}}}
	idx.FullIndex(reg, cfg)

	rootHandle, _ := idx.FindRoot(root)
	handles := idx.Traverse(rootHandle)
	if len(handles) != 3 {
		t.Fatalf("expected 3 handles (root, a, b), got %d", len(handles))
	}
}

func TestFullIndexIsIdempotent(t *testing.T) {
	root := t.TempDir()
	mustMkdir(t, filepath.Join(root, "a"))
	mustWrite(t, filepath.Join(root, "a", "f.txt"), "x")

	reg := newRegistry(t)
	idx := New()
	cfg := &config.Config{Directories: []config.WatchDir{{Path: root, Recurse: true}}}

	idx.FullIndex(reg, cfg)
	first := idx.AllEntries()

	idx.FullIndex(reg, cfg)
	second := idx.AllEntries()

	if len(first) != len(second) {
		t.Fatalf("expected idempotent full index, got %d vs %d entries", len(first), len(second))
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", path, err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%q): %v", path, err)
	}
}
