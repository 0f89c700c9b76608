package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/troia/halo/internal/platform"
)

// Launcher starts commands without waiting for them.
type Launcher interface {
	Launch(command string) error
}

// Engine executes run-or-raise requests against a window directory.
type Engine struct {
	resolver Resolver
	dir      platform.Directory
	launcher Launcher
	logger   *slog.Logger
}

// New builds an engine. resolver may be nil when every request carries an
// explicit class and exec.
func New(resolver Resolver, dir platform.Directory, launcher Launcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{resolver: resolver, dir: dir, launcher: launcher, logger: logger}
}

func (e *Engine) Directory() platform.Directory { return e.dir }

// RunOrRaise resolves req and raises or launches it.
func (e *Engine) RunOrRaise(ctx context.Context, req Request) (Outcome, error) {
	target, err := ResolveTarget(req, e.resolver)
	if err != nil {
		return Outcome{}, err
	}
	return e.Raise(ctx, target)
}

// Raise focuses a window of target.Class or launches target.Exec. The window
// list is fetched fresh for every call.
func (e *Engine) Raise(ctx context.Context, target Target) (Outcome, error) {
	windows, err := e.dir.ListWindows(ctx)
	if err != nil {
		return Outcome{}, err
	}
	action := Decide(target, windows)
	out := Outcome{Action: action, Target: target}

	switch action.Kind {
	case ActionFocus:
		if err := e.dir.Focus(ctx, action.Address); err != nil {
			return out, err
		}
		e.logger.Info("focused window", "class", target.Class, "address", action.Address)
	case ActionLaunch:
		if err := e.launcher.Launch(action.Exec); err != nil {
			return out, err
		}
		e.logger.Info("launched application", "class", target.Class, "exec", action.Exec)
	default:
		return out, fmt.Errorf("unknown action %v", action.Kind)
	}
	return out, nil
}

// CloseTarget closes the first window whose class matches req.
func (e *Engine) CloseTarget(ctx context.Context, req Request) (platform.Window, error) {
	class, err := resolveClass(req, e.resolver)
	if err != nil {
		return platform.Window{}, err
	}
	windows, err := e.dir.ListWindows(ctx)
	if err != nil {
		return platform.Window{}, err
	}
	w, ok := FindWindow(class, windows)
	if !ok {
		return platform.Window{}, fmt.Errorf("%w for class %q", ErrNoWindow, class)
	}
	if err := e.dir.Close(ctx, w.Address); err != nil {
		return platform.Window{}, err
	}
	e.logger.Info("closed window", "class", class, "address", w.Address)
	return w, nil
}

// Running reports, for each class, whether a window of that class exists.
func (e *Engine) Running(ctx context.Context, classes []string) (map[string]bool, error) {
	windows, err := e.dir.ListWindows(ctx)
	if err != nil {
		return nil, err
	}
	running := make(map[string]bool, len(classes))
	for _, class := range classes {
		_, running[class] = FindWindow(class, windows)
	}
	return running, nil
}
