// Package registry wraps the kernel filesystem notifier, translating its
// events into a handle-addressed shape: each watched directory gets an
// opaque WatchHandle, and events are reported against that handle plus the
// changed entry's own name, rather than the full path fsnotify already
// resolves internally. This is the layer that lets internal/index stay a
// plain handle -> node map, the way a raw inotify-backed implementation
// would see it.
package registry

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// WatchHandle is an opaque, comparable identifier for a registered watch.
// Two handles compare equal iff they were returned for the same
// registration. Handles are never reused within a Registry's lifetime.
type WatchHandle uint64

// Mask is a bitfield of the event kinds delivered for a watch.
type Mask uint8

const (
	Create Mask = 1 << iota
	Delete
	MovedFrom
	MovedTo
)

// Has reports whether m has all the bits of other set.
func (m Mask) Has(other Mask) bool { return m&other == other }

// Event is a single filesystem change, reported against the WatchHandle of
// the directory it occurred in.
type Event struct {
	Handle WatchHandle
	Mask   Mask
	Name   string // the changed entry's own path segment
}

// ErrWouldBlock is returned by Poll when no events are currently queued.
// It is not a real error: per the watcher registry's contract, callers must
// never log it.
var ErrWouldBlock = errors.New("registry: would block")

// Registry owns the kernel notifier connection and the handle<->path arena
// needed to translate fsnotify's full-path events into handle+name events.
type Registry struct {
	fsw *fsnotify.Watcher

	mu       sync.Mutex
	byHandle map[WatchHandle]string
	byPath   map[string]WatchHandle
	next     WatchHandle

	errs []error
}

// New opens the kernel notifier connection.
func New() (*Registry, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Registry{
		fsw:      fsw,
		byHandle: make(map[WatchHandle]string),
		byPath:   make(map[string]WatchHandle),
	}, nil
}

// Add registers path with the kernel notifier and returns its handle.
func (r *Registry) Add(path string) (WatchHandle, error) {
	if err := r.fsw.Add(path); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.byHandle[h] = path
	r.byPath[path] = h
	return h, nil
}

// Remove drops the kernel watch for handle. Removing a handle this
// Registry no longer knows (already passed to Remove) is a no-op. A handle
// that is still known is passed to the notifier even if the kernel has
// already dropped its watch (its directory was deleted); the notifier's
// error is then returned.
func (r *Registry) Remove(h WatchHandle) error {
	r.mu.Lock()
	path, ok := r.byHandle[h]
	if ok {
		delete(r.byHandle, h)
		delete(r.byPath, path)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.fsw.Remove(path)
}

// Close shuts down the kernel notifier connection entirely.
func (r *Registry) Close() error {
	return r.fsw.Close()
}

// Poll drains whatever events are currently buffered without blocking. When
// nothing is queued it returns ErrWouldBlock, which must never be logged.
func (r *Registry) Poll() ([]Event, error) {
	var out []Event

	for {
		select {
		case ev, ok := <-r.fsw.Events:
			if !ok {
				return out, nil
			}
			if parsed, ok := r.parse(ev); ok {
				out = append(out, parsed)
			}
		case err, ok := <-r.fsw.Errors:
			if !ok {
				return out, nil
			}
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		default:
			if len(out) == 0 {
				return nil, ErrWouldBlock
			}
			return out, nil
		}
	}
}

// Errors returns and clears any kernel-notifier errors collected during
// Poll. These are distinct from per-event conditions and are surfaced to
// the event loop for logging.
func (r *Registry) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	errs := r.errs
	r.errs = nil
	return errs
}

// parse maps a fsnotify.Event, which names the full path of the changed
// entry, back into a handle (for the entry's parent directory) plus the
// entry's own name. An event whose parent directory is not a known watch
// (already removed, or a directory fsnotify still has buffered events for)
// is dropped -- it is equivalent to an inotify event naming an unknown
// descriptor.
func (r *Registry) parse(ev fsnotify.Event) (Event, bool) {
	dir, name := splitPath(ev.Name)

	r.mu.Lock()
	h, ok := r.byPath[dir]
	r.mu.Unlock()
	if !ok {
		return Event{}, false
	}

	// fsnotify's inotify backend folds IN_CREATE and IN_MOVED_TO into a
	// single Create op, and IN_MOVE_SELF/IN_MOVED_FROM into Rename -- so
	// Create here may mean either a fresh CREATE or the "to" side of a
	// rename, and Rename here always means the "from" side (MOVED_FROM).
	// We report both as Create/MovedFrom; since the index treats
	// CREATE and MOVED_TO identically (both call incremental-create) and
	// DELETE/MOVED_FROM identically (both call incremental-remove), the
	// distinction the raw inotify mask bit would carry does not matter to
	// the index, only to log messages.
	var mask Mask
	if ev.Has(fsnotify.Create) {
		mask |= Create
	}
	if ev.Has(fsnotify.Remove) {
		mask |= Delete
	}
	if ev.Has(fsnotify.Rename) {
		mask |= MovedFrom
	}
	if mask == 0 {
		return Event{}, false
	}

	return Event{Handle: h, Mask: mask, Name: name}, true
}

// splitPath splits a full path into its parent directory and base name,
// trimming the trailing separator filepath.Split leaves on dir.
func splitPath(full string) (dir, name string) {
	dir, name = filepath.Split(full)
	dir = strings.TrimSuffix(dir, string(filepath.Separator))
	return dir, name
}
