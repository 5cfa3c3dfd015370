package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/hump-yard/pkg/logger"
)

const minSettleTick = 10 * time.Millisecond

// walkedWindow is how long a file found by scanning a new directory
// suppresses its own create event, which may still be queued.
const walkedWindow = 2 * time.Second

// Watcher monitors a single root directory.
type Watcher struct {
	root      string
	recursive bool
	fsw       *fsnotify.Watcher
	logger    logger.Logger
	config    Config

	mu      sync.Mutex
	running bool
	closed  bool

	// Owned by the Run goroutine.
	pending      map[string]time.Time
	walked       map[string]time.Time
	failureCount int
	circuitOpen  bool
}

// New creates a watcher for root.
//
// Parameters:
//   - root: Directory to watch ("~" is expanded)
//   - recursive: Also watch subdirectories, including ones created later
//   - cfg: Watcher configuration
//   - log: Logger instance
//
// Returns:
//   - Watcher with root already registered
//   - ErrInvalidPath if root is missing or not a directory
func New(root string, recursive bool, cfg Config, log logger.Logger) (*Watcher, error) {
	if cfg.CircuitBreakerThreshold <= 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}

	root = expandHome(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPath, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:      root,
		recursive: recursive,
		fsw:       fsw,
		logger:    log.With("root", root),
		config:    cfg,
		pending:   make(map[string]time.Time),
		walked:    make(map[string]time.Time),
	}

	if recursive {
		err = w.addPathRecursive(root)
	} else {
		err = w.fsw.Add(root)
	}
	if err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			log.Error("failed to close fsnotify watcher", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to add path %s: %w", root, err)
	}

	w.logger.Info("watching folder",
		"recursive", recursive,
		"settle_delay", cfg.SettleDelay)

	return w, nil
}

// Root returns the expanded root directory.
func (w *Watcher) Root() string {
	return w.root
}

// Run delivers events to handle until ctx is cancelled, then releases the
// fsnotify watcher. It returns nil on cancellation. Files still settling at
// that point are dropped.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		if err := w.Close(); err != nil {
			w.logger.Error("failed to close watcher", "error", err)
		}
	}()

	var tick <-chan time.Time
	if w.config.SettleDelay > 0 {
		interval := w.config.SettleDelay / 4
		if interval < minSettleTick {
			interval = minSettleTick
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if len(w.pending) > 0 {
				w.logger.Debug("dropping unsettled files", "count", len(w.pending))
			}
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return ErrWatcherClosed
			}
			w.handleEvent(event, handle)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			w.handleError(err)

		case now := <-tick:
			w.flushSettled(now, handle)
		}
	}
}

// Close releases the fsnotify watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// handleEvent forwards creations. With a settle delay, writes re-arm a
// pending file and removals or renames away cancel it.
func (w *Watcher) handleEvent(event fsnotify.Event, handle Handler) {
	w.resetFailures()

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Lstat(event.Name)
		if err != nil {
			w.logger.Debug("created entry vanished", "path", event.Name)
			return
		}

		if info.IsDir() {
			handle(Event{Path: event.Name, IsDir: true, Timestamp: time.Now()})
			if w.recursive {
				if addErr := w.addPathRecursive(event.Name); addErr != nil {
					w.logger.Warn("failed to watch new subdirectory",
						"path", event.Name,
						"error", addErr)
					return
				}
				w.emitExisting(event.Name, handle)
			}
			return
		}

		if at, ok := w.walked[event.Name]; ok {
			delete(w.walked, event.Name)
			if time.Since(at) < walkedWindow {
				return
			}
		}
		w.emitFile(event.Name, handle)

	case event.Has(fsnotify.Write):
		if _, ok := w.pending[event.Name]; ok {
			w.pending[event.Name] = time.Now().Add(w.config.SettleDelay)
		}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	}
}

// emitFile delivers a new file now, or after the settle delay.
func (w *Watcher) emitFile(path string, handle Handler) {
	if w.config.SettleDelay > 0 {
		w.pending[path] = time.Now().Add(w.config.SettleDelay)
		return
	}
	handle(Event{Path: path, Timestamp: time.Now()})
}

// emitExisting delivers the files already inside a directory that appeared
// under a recursive root. They were created or moved in before the
// directory was watched, so no create event reports them.
func (w *Watcher) emitExisting(dir string, handle Handler) {
	now := time.Now()
	for path, at := range w.walked {
		if now.Sub(at) >= walkedWindow {
			delete(w.walked, path)
		}
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("error scanning new directory", "path", path, "error", err)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		w.walked[path] = now
		w.emitFile(path, handle)
		return nil
	})
	if err != nil {
		w.logger.Warn("failed to scan new directory", "path", dir, "error", err)
	}
}

func (w *Watcher) flushSettled(now time.Time, handle Handler) {
	for path, due := range w.pending {
		if now.Before(due) {
			continue
		}
		delete(w.pending, path)
		handle(Event{Path: path, Timestamp: now})
	}
}

// handleError counts consecutive fsnotify errors. Once the threshold is
// reached the circuit opens: it is reported once and further errors are only
// logged at debug level until an event arrives again.
func (w *Watcher) handleError(err error) {
	w.failureCount++

	if errors.Is(err, fsnotify.ErrEventOverflow) {
		w.logger.Warn("event queue overflowed, some files may be missed")
	}

	if w.circuitOpen {
		w.logger.Debug("fsnotify error", "error", err, "failure_count", w.failureCount)
		return
	}

	w.logger.Error("fsnotify error",
		"error", err,
		"failure_count", w.failureCount)

	if w.failureCount >= w.config.CircuitBreakerThreshold {
		w.circuitOpen = true
		w.logger.Error("circuit breaker opened",
			"threshold", w.config.CircuitBreakerThreshold)
	}
}

func (w *Watcher) resetFailures() {
	if w.circuitOpen {
		w.logger.Info("circuit breaker closed", "failure_count", w.failureCount)
	}
	w.failureCount = 0
	w.circuitOpen = false
}

// addPathRecursive adds a path and all subdirectories to the watcher.
func (w *Watcher) addPathRecursive(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("failed to add path: %w", err)
	}

	w.logger.Debug("added watch path", "path", path)

	return filepath.WalkDir(path, func(subPath string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("error walking path",
				"path", subPath,
				"error", err)
			return nil // Skip but continue walking.
		}

		if !d.IsDir() || subPath == path {
			return nil
		}

		if addErr := w.fsw.Add(subPath); addErr != nil {
			w.logger.Warn("failed to add subdirectory",
				"path", subPath,
				"error", addErr)
			return nil
		}

		w.logger.Debug("added watch subdirectory", "path", subPath)
		return nil
	})
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
