package watcher

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// job is the on-disk shape of one durable queue entry.
type job struct {
	ID         string    `json:"id"`
	Root       string    `json:"root"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// FileQueueSink is the default durable QueueSink: a directory of JSON job
// files, drained by one background worker that invokes the same indexer
// call the in-process path would have. A file-backed queue needs no
// broker process, so it works out of the box with nothing else running.
type FileQueueSink struct {
	dir string
	run RunFunc

	wake chan struct{}
	done chan struct{}
}

// NewFileQueueSink builds a sink backed by dir, creating it if necessary.
// run executes one job (the indexer pass).
func NewFileQueueSink(dir string, run RunFunc) (*FileQueueSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileQueueSink{
		dir:  dir,
		run:  run,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}, nil
}

// Start launches the single drain worker.
func (s *FileQueueSink) Start(ctx context.Context) {
	go s.worker(ctx)
}

// Stop signals the worker to exit after its current job.
func (s *FileQueueSink) Stop() { close(s.done) }

// Enqueue writes a new job file and wakes the worker.
func (s *FileQueueSink) Enqueue(_ context.Context, root string) error {
	j := job{ID: uuid.NewString(), Root: root, EnqueuedAt: time.Now()}
	data, err := json.Marshal(j)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, j.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *FileQueueSink) worker(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.wake:
			s.drainOne(ctx)
		case <-ticker.C:
			s.drainOne(ctx)
		}
	}
}

// drainOne processes every pending job file, in file-name order (job ids
// are random UUIDs, so this is not enqueue order). Only one worker runs
// per sink, so jobs execute strictly serially.
func (s *FileQueueSink) drainOne(ctx context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil || len(entries) == 0 {
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var j job
		if err := json.Unmarshal(data, &j); err != nil {
			_ = os.Remove(path) // malformed job file, drop it
			continue
		}
		if err := s.run(ctx); err != nil {
			log.Printf("watcher: queued index pass failed: %v", err)
		}
		_ = os.Remove(path)
	}
}
