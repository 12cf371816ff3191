package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/anthropic/kidex/internal/config"
	"github.com/anthropic/kidex/internal/index"
	"github.com/anthropic/kidex/internal/ipc"
	"github.com/anthropic/kidex/internal/query"
	"github.com/anthropic/kidex/internal/registry"
)

// pollInterval is the event loop's inter-iteration sleep: long enough to
// avoid busy-waiting, short enough that control messages and filesystem
// events are picked up without perceptible latency.
const pollInterval = 10 * time.Millisecond

// controlBuffer bounds how many unprocessed control messages the event
// loop will tolerate before RequestFullIndex/RequestReload/RequestQuit
// start reporting a backlog instead of silently queuing forever.
const controlBuffer = 8

// IPCServer is the interface the daemon uses to start/stop the IPC
// listener. This avoids a circular dependency with the ipc package.
type IPCServer interface {
	Listen(socketPath string, ctx context.Context) error
	Stop() error
}

type controlKind int

const (
	controlFullIndex controlKind = iota
	controlReload
	controlQuit
)

// Daemon owns the single event loop: the only goroutine that mutates the
// directory index. Everything else -- the IPC server, the signal
// listener -- communicates with it either by posting to the control
// channel (for operations the loop alone may perform) or by taking mu
// directly (for reads the spec allows any goroutine to make under lock).
type Daemon struct {
	cfgPath string
	cfg     *config.Config
	ipc     IPCServer

	reg *registry.Registry
	idx *index.Index

	control   chan controlKind
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	mu      sync.Mutex
	running bool
}

// New creates a Daemon. The IPC server is injected to avoid circular
// imports; cfgPath is retained so Reload can re-read it from disk.
func New(cfgPath string, cfg *config.Config, ipcServer IPCServer) *Daemon {
	return &Daemon{
		cfgPath: cfgPath,
		cfg:     cfg,
		ipc:     ipcServer,
		control: make(chan controlKind, controlBuffer),
	}
}

// Start builds the initial index, starts the IPC server, and runs the
// event loop until a termination signal or Quit control message arrives.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.mu.Unlock()

	reg, err := registry.New()
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	d.reg = reg

	d.mu.Lock()
	d.idx = index.New()
	d.idx.FullIndex(d.reg, d.cfg)
	d.running = true
	d.mu.Unlock()

	// Termination arrives as SIGTERM (from a process manager) or SIGINT
	// (Ctrl-C in the foreground) and is folded into the same context the
	// IPC listener and event loop already select on.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	d.ctx = ctx
	d.cancel = cancel
	d.startTime = time.Now()

	socketPath := config.SocketPath()
	ipcErrCh := make(chan error, 1)
	go func() {
		ipcErrCh <- d.ipc.Listen(socketPath, d.ctx)
	}()

	log.Printf("daemon: started (pid %d, socket %s)", os.Getpid(), socketPath)

	d.runLoop(ipcErrCh)

	return d.shutdown()
}

// runLoop is the single-owner event loop described in the concurrency
// model: sleep, drain at most one control message, drain the registry's
// pending events, repeat.
func (d *Daemon) runLoop(ipcErrCh <-chan error) {
	for {
		select {
		case <-d.ctx.Done():
			log.Println("daemon: shutdown signal received")
			return
		case err := <-ipcErrCh:
			if err != nil {
				log.Printf("daemon: ipc server error: %v", err)
			}
			return
		case <-time.After(pollInterval):
		}

		select {
		case kind := <-d.control:
			if d.handleControl(kind) {
				return
			}
		default:
		}

		d.mu.Lock()
		events, err := d.reg.Poll()
		if err != nil && !errors.Is(err, registry.ErrWouldBlock) {
			log.Printf("daemon: poll: %v", err)
		}
		for _, nerr := range d.reg.Errors() {
			log.Printf("daemon: notifier error: %v", nerr)
		}
		for _, ev := range events {
			d.dispatchEvent(ev)
		}
		d.mu.Unlock()
	}
}

// dispatchEvent applies one registry event to the index. Multiple mask
// bits may be set; each applicable bit fires its own call. mu is already
// held by the caller.
func (d *Daemon) dispatchEvent(ev registry.Event) {
	if ev.Name == "" {
		log.Printf("daemon: event on handle %d has no name, skipping", ev.Handle)
		return
	}
	if _, ok := d.idx.Lookup(ev.Handle); !ok {
		log.Printf("daemon: event on unknown handle %d, skipping", ev.Handle)
		return
	}

	if ev.Mask.Has(registry.Create) || ev.Mask.Has(registry.MovedTo) {
		d.idx.IncrementalCreate(d.reg, ev.Handle, ev.Name)
	}
	if ev.Mask.Has(registry.Delete) || ev.Mask.Has(registry.MovedFrom) {
		d.idx.IncrementalRemove(d.reg, ev.Handle, ev.Name)
	}
}

// handleControl processes one control message and reports whether the
// loop should stop. FullIndex and Reload apply synchronously here;
// callers have already received their Success reply by the time this
// runs (the IPC server replies immediately after posting, not after
// completion).
func (d *Daemon) handleControl(kind controlKind) (quit bool) {
	switch kind {
	case controlFullIndex:
		d.mu.Lock()
		d.idx.FullIndex(d.reg, d.cfg)
		d.mu.Unlock()

	case controlReload:
		cfg, err := config.Load(d.cfgPath)
		if err != nil {
			log.Printf("daemon: reload failed, keeping previous config: %v", err)
			return false
		}
		d.mu.Lock()
		d.cfg = cfg
		d.mu.Unlock()
		log.Println("daemon: configuration reloaded")

	case controlQuit:
		return true
	}
	return false
}

// post queues a control message for the event loop without waiting for
// it to be processed -- the wire protocol replies Success immediately
// after posting, not after completion.
func (d *Daemon) post(kind controlKind) error {
	select {
	case d.control <- kind:
		return nil
	default:
		return fmt.Errorf("daemon: control channel backlog full")
	}
}

// RequestFullIndex implements ipc.Controller.
func (d *Daemon) RequestFullIndex() error { return d.post(controlFullIndex) }

// RequestReload implements ipc.Controller.
func (d *Daemon) RequestReload() error { return d.post(controlReload) }

// RequestQuit implements ipc.Controller.
func (d *Daemon) RequestQuit() error { return d.post(controlQuit) }

// GetIndex implements ipc.IndexStore. With path nil it returns the flat,
// bare-segment child listing; with path set it returns the absolute-path
// descendants of the root configured at that path, or ok=false if no such
// root is indexed.
func (d *Daemon) GetIndex(path *string) ([]index.Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if path == nil {
		return d.idx.FlatChildren(), true
	}

	root, ok := d.idx.FindRoot(*path)
	if !ok {
		return nil, false
	}
	return d.idx.DescendantsAbsolute(root), true
}

// QueryIndex implements ipc.IndexStore: scores every candidate, keeps
// score >= 0, and either sorts ascending (no limit) or takes the
// stable descending top-k (limit set). With RootPath set, the candidates
// are the descendants of the indexed directory at that path (a configured
// root or any watched subdirectory); an unindexed RootPath yields no
// results.
func (d *Daemon) QueryIndex(opts ipc.QueryOptions) []index.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := query.Parse(opts.Tokens, opts.CaseMode)

	var candidates []index.Entry
	if opts.RootPath != "" {
		for h := range d.idx.All() {
			if d.idx.ResolvePath(h) == filepath.Clean(opts.RootPath) {
				candidates = d.idx.DescendantsAbsolute(h)
				break
			}
		}
	} else {
		candidates = d.idx.AllEntries()
	}

	var scored []query.Scored
	for _, c := range candidates {
		if s := query.Score(q, c); s >= 0 {
			scored = append(scored, query.Scored{Score: s, Entry: c})
		}
	}

	if opts.Limit != nil {
		scored = query.PickTop(scored, *opts.Limit)
	} else {
		query.SortAscending(scored)
	}

	out := make([]index.Entry, len(scored))
	for i, s := range scored {
		out[i] = s.Entry
	}
	return out
}

// Stop triggers a graceful shutdown from outside the event loop (e.g. a
// signal handler that wants to bypass the control channel).
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

// shutdown performs ordered teardown: clear the index and release all
// watches, stop the IPC server, remove the socket file.
func (d *Daemon) shutdown() error {
	log.Println("daemon: shutting down")

	d.mu.Lock()
	if d.idx != nil {
		d.idx.Clear(d.reg)
	}
	d.mu.Unlock()

	if d.reg != nil {
		if err := d.reg.Close(); err != nil {
			log.Printf("daemon: closing registry: %v", err)
		}
	}

	if d.ipc != nil {
		if err := d.ipc.Stop(); err != nil {
			log.Printf("daemon: ipc stop: %v", err)
		}
	}

	_ = os.Remove(config.SocketPath())

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	log.Println("daemon: stopped")
	return nil
}

// Uptime returns how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	if d.startTime.IsZero() {
		return 0
	}
	return time.Since(d.startTime)
}

// Config returns the daemon's current configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Running reports whether the event loop is currently active.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}
