// Package platform abstracts the compositor queries run-or-raise needs:
// listing windows, focusing or closing one, and reading the pointer.
package platform

import (
	"context"
	"errors"
	"fmt"
)

// ErrCompositorUnreachable matches every *CompositorError.
var ErrCompositorUnreachable = errors.New("compositor unreachable")

// Address identifies a window within one backend. Hyprland uses its client
// address ("0x55d0c1a2b3c0"); X11 uses the window id in hex.
type Address string

// Window is a live top-level window as reported by the compositor.
type Window struct {
	Address   Address `json:"address"`
	Class     string  `json:"class"`
	Title     string  `json:"title"`
	Workspace string  `json:"workspace"`
	PID       int     `json:"pid,omitempty"`
}

// Point is a pointer position relative to the top-left corner of the
// monitor named by Monitor.
type Point struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Monitor string  `json:"monitor,omitempty"`
}

// Directory is the compositor-facing side of run-or-raise. Windows are
// queried fresh on every call.
type Directory interface {
	Name() string
	ListWindows(ctx context.Context) ([]Window, error)
	Focus(ctx context.Context, addr Address) error
	Close(ctx context.Context, addr Address) error
	CursorPosition(ctx context.Context) (Point, error)
}

// CompositorError reports a compositor call that failed or timed out.
type CompositorError struct {
	Backend string
	Op      string
	Err     error
}

func (e *CompositorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *CompositorError) Unwrap() error { return e.Err }

func (e *CompositorError) Is(target error) bool {
	return target == ErrCompositorUnreachable
}
