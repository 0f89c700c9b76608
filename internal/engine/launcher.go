//go:build unix

package engine

import (
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
)

// ShellLauncher runs commands through "sh -c" in a new session so they
// outlive the caller. Standard streams go to /dev/null.
type ShellLauncher struct {
	Logger *slog.Logger
}

func (l ShellLauncher) Launch(command string) error {
	cmd := exec.Command("sh", "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %q: %w", command, err)
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pid := cmd.Process.Pid
	logger.Debug("launched", "command", command, "pid", pid)
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("launched command exited", "command", command, "pid", pid, "error", err)
		}
	}()
	return nil
}
