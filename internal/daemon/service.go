package daemon

import (
	"context"
	"fmt"
	"time"

	"mvdan.cc/sh/v3/syntax"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/ipc"
	"github.com/troia/halo/internal/platform"
)

var _ ipc.Service = (*Daemon)(nil)

func (d *Daemon) version() uint64 {
	return d.store.Current().Version
}

// Show makes the menu visible at anchor, or at the pointer when anchor is
// nil. Showing an already visible menu changes nothing.
func (d *Daemon) Show(ctx context.Context, anchor *platform.Point) (ipc.VisibilityData, uint64, error) {
	at := d.anchorOrPointer(ctx, anchor)

	var data ipc.VisibilityData
	var version uint64
	err := d.do(ctx, func(s *loopState) {
		version = d.version()
		data = d.show(s, at)
	})
	return data, version, err
}

// anchorOrPointer queries the compositor outside the loop so a slow
// compositor never holds it.
func (d *Daemon) anchorOrPointer(ctx context.Context, anchor *platform.Point) platform.Point {
	if anchor != nil {
		return *anchor
	}
	p, err := d.engine.Directory().CursorPosition(ctx)
	if err != nil {
		d.logger.Warn("pointer position unavailable, anchoring at origin", "error", err)
		return platform.Point{}
	}
	return p
}

func (d *Daemon) show(s *loopState, at platform.Point) ipc.VisibilityData {
	var data ipc.VisibilityData
	if !s.visibility.Visible {
		d.setVisibility(s, Visibility{Visible: true, Anchor: at})
		data.Changed = true
		d.logger.Debug("menu shown", "x", at.X, "y", at.Y, "monitor", at.Monitor)
	}
	current := s.visibility.Anchor
	data.Visible = true
	data.Anchor = &current
	return data
}

// Hide hides the menu. Hiding a hidden menu changes nothing.
func (d *Daemon) Hide(ctx context.Context) (ipc.VisibilityData, uint64, error) {
	var data ipc.VisibilityData
	var version uint64
	err := d.do(ctx, func(s *loopState) {
		version = d.version()
		data.Changed = d.hide(s)
	})
	return data, version, err
}

// Toggle hides a visible menu, or shows a hidden one at the pointer. The
// pointer is read up front; the decision and the transition happen in one
// loop operation.
func (d *Daemon) Toggle(ctx context.Context) (ipc.VisibilityData, uint64, error) {
	at := d.anchorOrPointer(ctx, nil)

	var data ipc.VisibilityData
	var version uint64
	err := d.do(ctx, func(s *loopState) {
		version = d.version()
		if s.visibility.Visible {
			data.Changed = d.hide(s)
			return
		}
		data = d.show(s, at)
	})
	return data, version, err
}

func (d *Daemon) hide(s *loopState) bool {
	if !s.visibility.Visible {
		return false
	}
	d.setVisibility(s, Visibility{})
	d.logger.Debug("menu hidden")
	return true
}

// hideAfterAction hides the menu once a slot action has run. The action is
// already done, so a stopped loop is not an error here.
func (d *Daemon) hideAfterAction(ctx context.Context) {
	_ = d.do(context.WithoutCancel(ctx), func(s *loopState) { d.hide(s) })
}

// Run raises or launches req. The configuration snapshot is taken once at
// the start; the action is not cancelled if the client goes away.
func (d *Daemon) Run(ctx context.Context, req engine.Request) (engine.Outcome, uint64, error) {
	cfg := d.store.Current()
	out, err := d.engine.RunOrRaise(context.WithoutCancel(ctx), req)
	if err == nil {
		d.recorder.IncDecision(out.Action.Kind.String())
	}
	return out, cfg.Version, err
}

// Select runs the slot at dir and hides the menu.
func (d *Daemon) Select(ctx context.Context, dir config.Direction) (ipc.SelectData, uint64, error) {
	cfg := d.store.Current()
	data := ipc.SelectData{Direction: dir}

	slot, ok := cfg.Slot(dir)
	if !ok {
		return data, cfg.Version, fmt.Errorf("%w at %s", config.ErrNoSlot, dir)
	}
	defer d.hideAfterAction(ctx)

	if slot.Setup {
		created, path, err := d.setup(ctx, cfg.Source)
		data.Setup = true
		data.Created = created
		data.ConfigPath = path
		return data, cfg.Version, err
	}

	out, err := d.engine.RunOrRaise(context.WithoutCancel(ctx), slotRequest(slot))
	if err != nil {
		return data, cfg.Version, err
	}
	d.recorder.IncDecision(out.Action.Kind.String())
	data.Outcome = &out
	return data, cfg.Version, nil
}

// setup writes the default configuration if needed, publishes it, and
// opens it for editing.
func (d *Daemon) setup(ctx context.Context, path string) (bool, string, error) {
	if path == "" {
		path = d.configPath
	}
	created, err := config.WriteDefault(path)
	if err != nil {
		return false, path, err
	}
	if created {
		d.logger.Info("wrote default configuration", "path", path)
	}
	if _, _, err := d.Reload(ctx); err != nil {
		d.logger.Warn("default configuration did not load", "path", path, "error", err)
	}

	quoted, err := syntax.Quote(path, syntax.LangPOSIX)
	if err != nil {
		return created, path, fmt.Errorf("cannot quote %q: %w", path, err)
	}
	if err := d.launcher.Launch("xdg-open " + quoted); err != nil {
		d.logger.Warn("failed to open configuration", "path", path, "error", err)
	}
	return created, path, nil
}

// Close closes the window of the slot at dir and hides the menu.
func (d *Daemon) Close(ctx context.Context, dir config.Direction) (ipc.CloseData, uint64, error) {
	cfg := d.store.Current()
	data := ipc.CloseData{Direction: dir}

	slot, ok := cfg.Slot(dir)
	if !ok {
		return data, cfg.Version, fmt.Errorf("%w at %s", config.ErrNoSlot, dir)
	}
	defer d.hideAfterAction(ctx)

	if slot.Setup {
		return data, cfg.Version, fmt.Errorf("%w for the setup slot", engine.ErrNoWindow)
	}
	w, err := d.engine.CloseTarget(context.WithoutCancel(ctx), slotRequest(slot))
	data.Window = w
	return data, cfg.Version, err
}

// Slots lists the configured slots with their resolved targets. When the
// compositor cannot be queried every slot is reported as not running.
func (d *Daemon) Slots(ctx context.Context) (ipc.SlotsData, uint64, error) {
	cfg := d.store.Current()
	infos := make([]ipc.SlotInfo, 0, len(cfg.Slots))
	classes := make([]string, 0, len(cfg.Slots))

	for _, slot := range cfg.Slots {
		info := ipc.SlotInfo{
			Direction: slot.Direction,
			App:       slot.App,
			Class:     slot.Class,
			Exec:      slot.Exec,
			Setup:     slot.Setup,
		}
		if !slot.Setup {
			if d.resolver != nil {
				if entry, err := d.resolver.Resolve(slot.App); err == nil {
					info.Icon = d.resolver.IconPath(entry)
				}
			}
			target, err := engine.ResolveTarget(slotRequest(slot), d.resolver)
			if err != nil {
				info.Error = err.Error()
			} else {
				info.Class = target.Class
				info.Exec = target.Exec
			}
		}
		infos = append(infos, info)
		classes = append(classes, info.Class)
	}

	running, err := d.engine.Running(ctx, classes)
	if err != nil {
		d.logger.Warn("cannot determine running slots", "error", err)
	}
	for i := range infos {
		if !infos[i].Setup {
			infos[i].Running = running[infos[i].Class]
		}
	}
	return ipc.SlotsData{Slots: infos}, cfg.Version, nil
}

// Status reports the daemon state as seen by the loop.
func (d *Daemon) Status(ctx context.Context) (ipc.StatusData, uint64, error) {
	var data ipc.StatusData
	err := d.do(ctx, func(s *loopState) {
		cfg := d.store.Current()
		data = ipc.StatusData{
			Version:       cfg.Version,
			Visible:       s.visibility.Visible,
			UptimeSeconds: int64(time.Since(d.startTime).Seconds()),
			ConfigPath:    d.configPath,
			Setup:         cfg.IsSetup(),
			Slots:         len(cfg.Slots),
			Backend:       d.engine.Directory().Name(),
			DaemonRunning: true,
		}
		if s.visibility.Visible {
			anchor := s.visibility.Anchor
			data.Anchor = &anchor
		}
		if s.lastErr != nil {
			data.LastConfigError = s.lastErr.Error()
		}
	})
	return data, data.Version, err
}

// Reload loads and publishes the configuration file now. On failure the
// previous configuration stays in effect.
func (d *Daemon) Reload(ctx context.Context) (ipc.ReloadData, uint64, error) {
	var data ipc.ReloadData
	var version uint64
	var loadErr error
	err := d.do(ctx, func(s *loopState) {
		cfg, err := config.LoadFromPath(d.configPath, d.resolver)
		if err != nil {
			d.applyError(s, err)
			loadErr = err
			version = d.version()
			return
		}
		published := d.apply(s, cfg)
		version = published.Version
		data = ipc.ReloadData{Version: published.Version, Slots: len(published.Slots), Setup: published.IsSetup()}
	})
	if err != nil {
		return data, version, err
	}
	return data, version, loadErr
}

// Rebuild rescans desktop entries.
func (d *Daemon) Rebuild(ctx context.Context) (ipc.RebuildData, uint64, error) {
	if d.resolver == nil {
		return ipc.RebuildData{}, d.version(), fmt.Errorf("no desktop entry index configured")
	}
	n := d.resolver.Rebuild()
	d.logger.Info("desktop entries rebuilt", "entries", n)
	return ipc.RebuildData{Entries: n}, d.version(), nil
}

func slotRequest(s config.Slot) engine.Request {
	return engine.Request{App: s.App, Class: s.Class, Exec: s.Exec}
}
