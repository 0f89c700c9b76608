// Package daemon owns the menu state and serves run-or-raise requests.
//
// A single loop goroutine serializes visibility transitions and config
// publication. Run-or-raise requests read the current config snapshot and
// execute outside the loop so a slow compositor never blocks show/hide.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/desktop"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/metrics"
	"github.com/troia/halo/internal/platform"
)

// ErrStopped is returned by requests that arrive after Serve has returned.
var ErrStopped = errors.New("daemon stopped")

// Resolver is the desktop entry index the daemon consults and rebuilds.
type Resolver interface {
	Resolve(name string) (desktop.Entry, error)
	Rebuild() int
	IconPath(e desktop.Entry) string
}

// Visibility is the menu state. Anchor is meaningful only while Visible.
type Visibility struct {
	Visible bool
	Anchor  platform.Point
}

// Options holds the daemon's collaborators.
type Options struct {
	ConfigPath string
	// Initial is the configuration loaded at startup. When InitialErr is
	// set instead, an empty configuration is published and the error is
	// reported by status until a valid file appears.
	Initial    *config.Config
	InitialErr error

	Store    *config.Store
	Resolver Resolver
	Engine   *engine.Engine
	Launcher engine.Launcher
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// loopState is touched only by the loop goroutine.
type loopState struct {
	visibility Visibility
	lastErr    error
}

// Daemon implements ipc.Service.
type Daemon struct {
	configPath string
	store      *config.Store
	resolver   Resolver
	engine     *engine.Engine
	launcher   engine.Launcher
	recorder   metrics.Recorder
	logger     *slog.Logger
	settings   config.Settings
	startTime  time.Time

	ops  chan func(*loopState)
	done chan struct{}
	// initialErr seeds loopState.lastErr when Run starts.
	initialErr error
}

// New publishes the initial configuration and prepares the loop. Call Run
// to start serving.
func New(opts Options) (*Daemon, error) {
	if opts.Store == nil || opts.Engine == nil || opts.Launcher == nil {
		return nil, fmt.Errorf("daemon: store, engine and launcher are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	initial := opts.Initial
	if opts.InitialErr != nil || initial == nil {
		initial = config.New(nil, config.DefaultSettings(), opts.ConfigPath)
	}
	published := opts.Store.Publish(initial)
	recorder.SetConfigVersion(published.Version)

	return &Daemon{
		configPath: opts.ConfigPath,
		store:      opts.Store,
		resolver:   opts.Resolver,
		engine:     opts.Engine,
		launcher:   opts.Launcher,
		recorder:   recorder,
		logger:     logger,
		settings:   published.Settings,
		startTime:  time.Now(),
		ops:        make(chan func(*loopState)),
		done:       make(chan struct{}),
		initialErr: opts.InitialErr,
	}, nil
}

// Serve runs the loop: it executes queued operations and applies configs
// from watch (which may be nil) until ctx is cancelled.
func (d *Daemon) Serve(ctx context.Context, watch <-chan config.WatchEvent) error {
	defer close(d.done)

	state := &loopState{lastErr: d.initialErr}
	d.logger.Info("daemon started", "config", d.configPath, "version", d.store.Current().Version)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopped")
			return nil
		case op := <-d.ops:
			d.runOp(op, state)
		case ev, ok := <-watch:
			if !ok {
				watch = nil
				continue
			}
			if ev.Err != nil {
				d.applyError(state, ev.Err)
				continue
			}
			d.apply(state, ev.Config)
		}
	}
}

// runOp executes op, recovering from panics so that a bug in one request
// does not take the daemon down.
func (d *Daemon) runOp(op func(*loopState), state *loopState) {
	defer func() {
		if err := recover(); err != nil {
			d.logger.Error("daemon loop panic recovered", "error", err)
		}
	}()
	op(state)
}

// do runs fn on the loop goroutine and waits for it to finish.
func (d *Daemon) do(ctx context.Context, fn func(*loopState)) error {
	finished := make(chan struct{})
	op := func(s *loopState) {
		defer close(finished)
		fn(s)
	}
	select {
	case d.ops <- op:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (d *Daemon) apply(state *loopState, cfg *config.Config) *config.Config {
	if cfg.Settings != d.settings && !cfg.IsSetup() {
		d.logger.Warn("daemon settings changed; restart required for them to take effect",
			"running", fmt.Sprintf("%+v", d.settings), "file", fmt.Sprintf("%+v", cfg.Settings))
	}
	published := d.store.Publish(cfg)
	state.lastErr = nil

	result := metrics.ReloadApplied
	if published.IsSetup() {
		result = metrics.ReloadSetup
	}
	d.recorder.IncConfigReload(result)
	d.recorder.SetConfigVersion(published.Version)
	d.logger.Info("configuration published", "version", published.Version, "slots", len(published.Slots), "setup", published.IsSetup())
	return published
}

func (d *Daemon) applyError(state *loopState, err error) {
	state.lastErr = err
	d.recorder.IncConfigReload(metrics.ReloadFailed)
	d.logger.Warn("keeping previous configuration", "version", d.store.Current().Version, "error", err)
}

func (d *Daemon) setVisibility(state *loopState, v Visibility) {
	state.visibility = v
	d.recorder.SetMenuVisible(v.Visible)
}
