package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/daemon"
	"github.com/troia/halo/internal/desktop"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/hotkeys"
	"github.com/troia/halo/internal/ipc"
	"github.com/troia/halo/internal/metrics"
	"github.com/troia/halo/internal/platform"
	"github.com/troia/halo/internal/runtimepath"
	"github.com/troia/halo/internal/x11"
)

type daemonFlags struct {
	logLevel string
	backend  string
	socket   string
}

func daemonCmd(configPath *string) *cobra.Command {
	f := &daemonFlags{}
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start the halo daemon (foreground)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), *configPath, f)
		},
	}
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Override log_level from the config file (debug, info, warning, error)")
	cmd.Flags().StringVar(&f.backend, "backend", "", "Override backend from the config file (auto, hyprland, x11)")
	cmd.Flags().StringVar(&f.socket, "socket", "", "IPC socket path (default: $XDG_RUNTIME_DIR/halo.sock)")
	return cmd
}

func runDaemon(parent context.Context, configPath string, f *daemonFlags) error {
	var level slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	path, err := resolveConfigPath(configPath)
	if err != nil {
		return err
	}

	resolver := desktop.NewDefaultResolver(logger)
	entries := resolver.Rebuild()

	initial, initialErr := config.LoadFromPath(path, resolver)
	settings := config.DefaultSettings()
	if initialErr == nil {
		settings = initial.Settings
	}
	if f.logLevel != "" {
		settings.LogLevel = f.logLevel
	}
	if f.backend != "" {
		settings.Backend = f.backend
	}
	level.Set(settings.SlogLevel())

	logger.Info("desktop entries indexed", "entries", entries)
	if initialErr != nil {
		logger.Error("configuration invalid, starting with no slots", "path", path, "error", initialErr)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if settings.MetricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		if err := metrics.Serve(ctx, settings.MetricsAddr, reg, logger); err != nil {
			return err
		}
		logger.Info("metrics listening", "addr", settings.MetricsAddr)
	}

	dir, err := platform.Open(settings.Backend)
	if err != nil {
		return fmt.Errorf("failed to open compositor backend: %w", err)
	}
	if x, ok := dir.(*platform.X11Directory); ok {
		defer x.Disconnect()
	}
	logger.Info("compositor backend", "backend", dir.Name(), "timeout", settings.CompositorTimeout)

	launcher := engine.ShellLauncher{Logger: logger}
	eng := engine.New(resolver, platform.Bounded(dir, settings.CompositorTimeout, recorder.ObserveCompositorCall), launcher, logger)

	d, err := daemon.New(daemon.Options{
		ConfigPath: path,
		Initial:    initial,
		InitialErr: initialErr,
		Store:      config.NewStore(nil),
		Resolver:   resolver,
		Engine:     eng,
		Launcher:   launcher,
		Recorder:   recorder,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	watcher, err := config.NewWatcher(path, resolver, logger)
	if err != nil {
		return err
	}
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Error("configuration watcher stopped; use `hypraise reload` after edits", "error", err)
		}
	}()

	socket := f.socket
	if socket == "" {
		if socket, err = runtimepath.SocketPath(); err != nil {
			return err
		}
	}
	server := ipc.NewServer(socket, d, logger, recorder)
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop()

	if settings.MenuHotkey != "" {
		startMenuHotkey(ctx, settings.MenuHotkey, dir.Name(), d, logger)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP, reloading configuration")
				if _, _, err := d.Reload(ctx); err != nil {
					logger.Warn("reload failed", "error", err)
				}
			}
		}
	}()

	return d.Serve(ctx, watcher.Events())
}

// startMenuHotkey grabs keys on its own X connection so the event loop
// never competes with window directory queries.
func startMenuHotkey(ctx context.Context, keys, backend string, d *daemon.Daemon, logger *slog.Logger) {
	if backend != "x11" {
		logger.Warn("menu_hotkey is only supported on X11; bind `hypraise toggle` in the compositor instead", "backend", backend)
		return
	}
	conn, err := x11.NewConnection()
	if err != nil {
		logger.Error("menu hotkey disabled", "error", err)
		return
	}
	h := hotkeys.NewHandler(conn, logger)
	err = h.RegisterFunc(keys, func() {
		toggleCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if _, _, err := d.Toggle(toggleCtx); err != nil {
			logger.Warn("menu toggle failed", "error", err)
		}
	})
	if err != nil {
		conn.Close()
		logger.Error("menu hotkey disabled", "error", err)
		return
	}
	logger.Info("menu hotkey registered", "keys", keys)
	go func() {
		defer conn.Close()
		h.Run(ctx)
	}()
}

func resolveConfigPath(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	return config.DefaultConfigPath()
}

func defaultPathHint() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return "~/.config/halo/config.yaml"
	}
	return dir + "/config.yaml"
}
