package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/guvensoft/codectx-mcp/internal/policy"
)

// RunFunc executes one indexing pass for root. It is either the indexer
// invoked directly, or (via QueueSink) a durable-queue worker that ends up
// calling the same indexer.
type RunFunc func(ctx context.Context) error

// QueueSink optionally fans a debounced job out to a durable work queue
// instead of running the indexer in-process.
type QueueSink interface {
	Enqueue(ctx context.Context, root string) error
}

// Watcher observes Root for create/modify/delete events under policy,
// debounces bursts by DebounceInterval, and runs (at most) one indexing
// job at a time, coalescing jobs that arrive while one is in flight.
type Watcher struct {
	Root   string
	filter *policy.Filter
	run    RunFunc
	sink   QueueSink

	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	group     singleflight.Group
	pending   atomic.Bool
	done      chan struct{}
}

// New builds a Watcher. sink may be nil to run the indexer in-process.
func New(root string, filter *policy.Filter, run RunFunc, sink QueueSink) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		Root:      root,
		filter:    filter,
		run:       run,
		sink:      sink,
		fsw:       fsw,
		debouncer: NewDebouncer(DebounceInterval),
		done:      make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case "node_modules", ".git", "dist", "build", "vendor":
			if p != root {
				return filepath.SkipDir
			}
		}
		return w.fsw.Add(p)
	})
}

// Start begins watching in the background, returning once the watch loop
// goroutine is running. Call Stop to shut down.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: fsnotify error: %v", err) // background errors log, never propagate
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(ev.Name)
			return // directory creation alone doesn't warrant a reindex
		}
	}
	// Policy is evaluated again by the indexer itself at read time; here we
	// only use it to avoid debouncing on files that were never eligible
	// (e.g. a .env write) — a delete can't be policy-checked since the
	// path is already gone, so deletes always trigger.
	if ev.Op&fsnotify.Remove == 0 && ev.Op&fsnotify.Rename == 0 && !w.filter.AllowList(ev.Name) {
		return
	}
	w.debouncer.Trigger(func() { w.onQuiet(ctx) })
}

// onQuiet fires once per debounced burst: a burst of changes within
// DebounceInterval triggers exactly one index pass.
func (w *Watcher) onQuiet(ctx context.Context) {
	if w.sink != nil {
		if err := w.sink.Enqueue(ctx, w.Root); err != nil {
			log.Printf("watcher: enqueue failed: %v", err)
		}
		return
	}
	go w.runCoalesced(ctx)
}

// runCoalesced ensures only one index job executes at a time per root;
// new jobs arriving while one runs coalesce into a single pending
// follow-up. Concurrent triggers share the in-flight call via
// singleflight instead of queuing on it; pending records that a trigger
// arrived, and the in-flight call runs one more pass for it before
// returning.
func (w *Watcher) runCoalesced(ctx context.Context) {
	w.pending.Store(true)
	for w.pending.Load() {
		_, _, _ = w.group.Do(w.Root, func() (interface{}, error) {
			for w.pending.CompareAndSwap(true, false) {
				if err := w.run(ctx); err != nil {
					log.Printf("watcher: index pass failed: %v", err)
				}
			}
			return nil, nil
		})
	}
}

// Stop flushes any pending debounced job (best-effort) and closes the
// filesystem watch.
func (w *Watcher) Stop() error {
	w.debouncer.Flush()
	close(w.done)
	return w.fsw.Close()
}
