package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/desktop"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/platform"
)

// Raiser runs one run-or-raise decision. *engine.Engine satisfies it.
type Raiser interface {
	RunOrRaise(ctx context.Context, req engine.Request) (engine.Outcome, error)
}

// StandaloneFunc opens a raiser that talks to the compositor directly.
// withResolver selects whether desktop entries are consulted.
type StandaloneFunc func(backend string, timeout time.Duration, withResolver bool, logger *slog.Logger) (Raiser, func(), error)

// OpenStandalone is the default StandaloneFunc.
func OpenStandalone(backend string, timeout time.Duration, withResolver bool, logger *slog.Logger) (Raiser, func(), error) {
	dir, err := platform.Open(backend)
	if err != nil {
		return nil, nil, err
	}
	if timeout <= 0 {
		timeout = config.DefaultCompositorTimeout
	}

	var resolver engine.Resolver
	if withResolver {
		resolver = desktop.NewDefaultResolver(logger)
	}
	eng := engine.New(resolver, platform.Bounded(dir, timeout, nil), engine.ShellLauncher{Logger: logger}, logger)

	cleanup := func() {
		if x, ok := dir.(*platform.X11Directory); ok {
			x.Disconnect()
		}
	}
	return eng, cleanup, nil
}

// outcomeCode maps a successful decision onto the process exit code.
func outcomeCode(out engine.Outcome, launchCode int) int {
	if out.Action.Kind == engine.ActionLaunch {
		return launchCode
	}
	return ExitOK
}
