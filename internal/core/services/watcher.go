package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driving"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// Watcher defaults.
const (
	DefaultWatchInterval = 5 * time.Minute
	DefaultDebounce      = 500 * time.Millisecond
)

// ErrWatcherRunning is returned when Run is called on a running watcher.
var ErrWatcherRunning = errors.New("watcher already running")

type watchAction int

const (
	watchIgnore watchAction = iota
	watchIngest
	watchNewDir
)

// Watcher keeps directories indexed: file events trigger a debounced
// IngestDocument and a periodic sweep re-runs IngestDirectory to catch
// anything the events missed.
type Watcher struct {
	ingestion driving.IngestionService
	interval  time.Duration
	debounce  time.Duration
	onResult  func(domain.IngestionResult)
	onSweep   func(dir string, stats *domain.IngestionStats, err error)

	mu      sync.Mutex
	running bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the sweep period. Zero disables periodic sweeps.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.interval = d
		}
	}
}

// WithDebounce sets how long a path must stay quiet before it is ingested.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithResultHandler receives the outcome of every event-triggered ingestion.
func WithResultHandler(fn func(domain.IngestionResult)) WatcherOption {
	return func(w *Watcher) { w.onResult = fn }
}

// WithSweepHandler receives the outcome of every directory sweep.
func WithSweepHandler(fn func(dir string, stats *domain.IngestionStats, err error)) WatcherOption {
	return func(w *Watcher) { w.onSweep = fn }
}

// NewWatcher creates a watcher over an ingestion service.
func NewWatcher(ingestion driving.IngestionService, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		ingestion: ingestion,
		interval:  DefaultWatchInterval,
		debounce:  DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run sweeps dirs once, then watches them until ctx is cancelled.
// It blocks and returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, dirs ...string) error {
	if len(dirs) == 0 {
		return fmt.Errorf("%w: no directory to watch", domain.ErrInvalidInput)
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
		}
		if err := addTree(fsw, dir); err != nil {
			return err
		}
	}

	// Initial sweep catches up on changes made while not watching.
	w.sweep(ctx, dirs...)

	return w.run(ctx, fsw, dirs)
}

// run is the main watch loop.
func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, dirs []string) error {
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	ready := make(chan string)
	done := make(chan struct{})
	timers := make(map[string]*time.Timer)
	defer func() {
		close(done)
		for _, t := range timers {
			t.Stop()
		}
	}()

	logger.Info("watching %v (sweep every %s)", dirs, w.interval)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			switch w.handleFsEvent(event) {
			case watchIngest:
				w.schedule(timers, ready, done, event.Name)
			case watchNewDir:
				if err := addTree(fsw, event.Name); err != nil {
					logger.Warn("watch %s: %v", event.Name, err)
				}
				// Files may have landed before the watch was added.
				w.sweep(ctx, event.Name)
			case watchIgnore:
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)

		case path := <-ready:
			delete(timers, path)
			result := w.ingestion.IngestDocument(ctx, path, "")
			if w.onResult != nil {
				w.onResult(result)
			}

		case <-tick:
			w.sweep(ctx, dirs...)
		}
	}
}

// schedule (re)starts the quiet period of a path.
func (w *Watcher) schedule(timers map[string]*time.Timer, ready chan<- string, done <-chan struct{}, path string) {
	if t, ok := timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	timers[path] = time.AfterFunc(w.debounce, func() {
		select {
		case ready <- path:
		case <-done:
		}
	})
}

func (w *Watcher) sweep(ctx context.Context, dirs ...string) {
	for _, dir := range dirs {
		if ctx.Err() != nil {
			return
		}
		stats, err := w.ingestion.IngestDirectory(ctx, dir)
		if err != nil {
			logger.Warn("sweep %s: %v", dir, err)
		}
		if w.onSweep != nil {
			w.onSweep(dir, stats, err)
		}
	}
}

// handleFsEvent decides what a filesystem event calls for.
// Removals are ignored: deleting a document is an explicit operation.
func (w *Watcher) handleFsEvent(event fsnotify.Event) watchAction {
	if isHidden(filepath.Base(event.Name)) {
		return watchIgnore
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return watchIgnore
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return watchIgnore
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			return watchNewDir
		}
		return watchIgnore
	}
	if !w.ingestion.Supports(event.Name) {
		return watchIgnore
	}
	return watchIngest
}

// addTree watches root and every non-hidden directory below it.
func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
