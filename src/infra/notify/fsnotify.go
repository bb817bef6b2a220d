package notify

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"schemawatch/src/features/watching"
)

// Watcher observes schema directories with native OS notifications and emits
// events on the channel it was constructed with. It recurses into
// subdirectories and keeps up with directories created while running.
type Watcher struct {
	watcher   *fsnotify.Watcher
	paths     []string
	exts      map[string]bool
	eventChan chan<- watching.Event
	stopChan  chan struct{}
	running   bool
}

// NewWatcher creates a new file system watcher for the given paths,
// reacting only to files with the given extensions.
func NewWatcher(paths []string, extensions []string, eventChan chan<- watching.Event) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}

	return &Watcher{
		watcher:   fsw,
		paths:     paths,
		exts:      exts,
		eventChan: eventChan,
		stopChan:  make(chan struct{}),
	}, nil
}

// Start begins watching. A missing or unreadable watch target is a fatal
// configuration error: the operator must know the target is wrong rather
// than sit on a silently empty event stream.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.paths {
		dirs, err := collectDirs(path)
		if err != nil {
			return fmt.Errorf("watch target %s is not usable: %w", path, err)
		}
		for _, dir := range dirs {
			if err := w.watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}
		slog.Info("Watching schema directory", "path", path, "subdirs", len(dirs)-1)
	}

	w.running = true
	go w.watchLoop(ctx)

	slog.Info("File watcher started successfully", "backend", "fsnotify")
	return nil
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	if !w.running {
		return
	}
	slog.Info("Stopping file watcher")
	w.running = false
	close(w.stopChan)
	w.watcher.Close()
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New subdirectories get added to the watch so the recursion invariant
	// holds for directories created after startup.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				slog.Error("Failed to watch new directory", "path", event.Name, "error", err)
			} else {
				slog.Debug("Watching new directory", "path", event.Name)
			}
			return
		}
	}

	if !supportedFile(event.Name, w.exts) {
		return
	}

	kind, ok := eventKind(event.Op)
	if !ok {
		return
	}

	w.emit(watching.Event{
		Path:      event.Name,
		Kind:      kind,
		Timestamp: time.Now(),
	})
}

func (w *Watcher) emit(ev watching.Event) {
	select {
	case w.eventChan <- ev:
		slog.Debug("Detected schema file change", "file", ev.Path, "kind", ev.Kind)
	default:
		slog.Warn("Event channel full, dropping change event", "path", ev.Path)
	}
}

// eventKind maps fsnotify ops onto event kinds. Chmod-only events carry no
// schema-relevant information and are dropped.
func eventKind(op fsnotify.Op) (watching.EventKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return watching.FileCreated, true
	case op.Has(fsnotify.Write):
		return watching.FileModified, true
	case op.Has(fsnotify.Remove):
		return watching.FileRemoved, true
	case op.Has(fsnotify.Rename):
		return watching.FileRenamed, true
	}
	return "", false
}

// supportedFile reports whether the path is a schema source file worth
// reacting to. Editor temp files and hidden files are ignored.
func supportedFile(path string, exts map[string]bool) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".swp" || ext == ".tmp" {
		return false
	}
	return exts[ext]
}

// collectDirs returns root and every subdirectory underneath it. It fails
// when root does not exist or is not a directory.
func collectDirs(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
