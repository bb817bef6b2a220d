package poll

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"schemawatch/src/features/watching"
)

// Watcher is the polling fallback observer for filesystems without native
// change notifications (network mounts, some containers). It scans the watch
// paths on a fixed interval and diffs modification times against the
// previous snapshot.
type Watcher struct {
	paths     []string
	exts      map[string]bool
	interval  time.Duration
	eventChan chan<- watching.Event
	stopChan  chan struct{}
	snapshot  map[string]time.Time
	running   bool
}

// NewWatcher creates a new polling watcher.
func NewWatcher(paths []string, extensions []string, interval time.Duration, eventChan chan<- watching.Event) *Watcher {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &Watcher{
		paths:     paths,
		exts:      exts,
		interval:  interval,
		eventChan: eventChan,
		stopChan:  make(chan struct{}),
	}
}

// Start primes the snapshot and begins the scan loop. Missing watch targets
// are a fatal configuration error, same as the fsnotify backend.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("watch target %s is not usable: %w", path, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("watch target %s is not a directory", path)
		}
	}

	snapshot, err := w.scan()
	if err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	w.snapshot = snapshot

	w.running = true
	go w.pollLoop(ctx)

	slog.Info("File watcher started successfully", "backend", "poll", "interval", w.interval.String())
	return nil
}

// Stop stops the polling loop.
func (w *Watcher) Stop() {
	if !w.running {
		return
	}
	w.running = false
	close(w.stopChan)
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.diff()

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// diff scans the tree and emits one event per observed difference.
func (w *Watcher) diff() {
	current, err := w.scan()
	if err != nil {
		slog.Error("Poll scan failed", "error", err)
		return
	}

	now := time.Now()
	for path, mtime := range current {
		prev, seen := w.snapshot[path]
		switch {
		case !seen:
			w.emit(watching.Event{Path: path, Kind: watching.FileCreated, Timestamp: now})
		case mtime.After(prev):
			w.emit(watching.Event{Path: path, Kind: watching.FileModified, Timestamp: now})
		}
	}
	for path := range w.snapshot {
		if _, ok := current[path]; !ok {
			w.emit(watching.Event{Path: path, Kind: watching.FileRemoved, Timestamp: now})
		}
	}

	w.snapshot = current
}

// scan walks all watch paths and records mtimes for supported files.
func (w *Watcher) scan() (map[string]time.Time, error) {
	files := make(map[string]time.Time)
	for _, root := range w.paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !w.supported(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			files[path] = info.ModTime()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (w *Watcher) supported(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) emit(ev watching.Event) {
	select {
	case w.eventChan <- ev:
		slog.Debug("Detected schema file change", "file", ev.Path, "kind", ev.Kind)
	default:
		slog.Warn("Event channel full, dropping change event", "path", ev.Path)
	}
}
