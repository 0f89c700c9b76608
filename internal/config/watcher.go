package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 150 * time.Millisecond

// WatchEvent carries the result of reloading the watched file. Exactly one
// of Config and Err is set.
type WatchEvent struct {
	Config *Config
	Err    error
}

// Watcher reloads a configuration file whenever it changes on disk.
type Watcher struct {
	path     string
	resolver Resolver
	logger   *slog.Logger
	debounce time.Duration
	events   chan WatchEvent
}

func NewWatcher(path string, resolver Resolver, logger *slog.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     absPath,
		resolver: resolver,
		logger:   logger,
		debounce: DefaultDebounce,
		events:   make(chan WatchEvent),
	}, nil
}

// SetDebounce changes how long the watcher waits for a burst of writes to
// settle. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

func (w *Watcher) Path() string { return w.path }

// Events delivers reload results. The channel is closed when Run returns.
func (w *Watcher) Events() <-chan WatchEvent { return w.events }

// Run watches the config file's directory until ctx is cancelled. The
// directory is created if it does not exist so that a file written later is
// still noticed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}
	w.logger.Info("watching configuration", "path", w.path)

	name := filepath.Base(w.path)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("config file changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watcher error", "error", err)
		case <-timer.C:
			ev := w.reload()
			select {
			case w.events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (w *Watcher) reload() WatchEvent {
	cfg, err := LoadFromPath(w.path, w.resolver)
	if err != nil {
		w.logger.Warn("config reload failed", "path", w.path, "error", err)
		return WatchEvent{Err: err}
	}
	if cfg.IsSetup() {
		w.logger.Info("config file missing, offering setup", "path", w.path)
	} else {
		w.logger.Info("config reloaded", "path", w.path, "slots", len(cfg.Slots))
	}
	return WatchEvent{Config: cfg}
}
