// Package engine implements run-or-raise: focus an application's window if
// one exists, otherwise launch it.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/troia/halo/internal/desktop"
	"github.com/troia/halo/internal/platform"
)

var (
	// ErrUnresolvedTarget matches every *UnresolvedTargetError.
	ErrUnresolvedTarget = errors.New("unresolved target")
	// ErrNoWindow is returned when closing a target that has no window.
	ErrNoWindow = errors.New("no matching window")
)

// Resolver looks up applications by name. *desktop.Resolver satisfies it.
type Resolver interface {
	Resolve(name string) (desktop.Entry, error)
}

// Request names an application and optionally overrides the class to match
// and the command to launch.
type Request struct {
	App   string `json:"app,omitempty"`
	Class string `json:"class,omitempty"`
	Exec  string `json:"exec,omitempty"`
}

// Target is a fully resolved request.
type Target struct {
	Class string `json:"class"`
	Exec  string `json:"exec"`
}

// UnresolvedTargetError reports a request that yields no command to run.
type UnresolvedTargetError struct {
	App string
	Err error
}

func (e *UnresolvedTargetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve %q: %v and no exec given", e.App, e.Err)
	}
	if e.App == "" {
		return "no app and no exec given"
	}
	return fmt.Sprintf("cannot resolve %q: no exec", e.App)
}

func (e *UnresolvedTargetError) Unwrap() error { return e.Err }

func (e *UnresolvedTargetError) Is(target error) bool {
	return target == ErrUnresolvedTarget
}

// ResolveTarget turns req into a class/exec pair. When both are given
// explicitly the resolver is not consulted. Otherwise the app's desktop
// entry supplies whatever was not overridden; an app without an entry still
// works when exec is explicit, matching on the explicit class or the app
// name.
func ResolveTarget(req Request, resolver Resolver) (Target, error) {
	req.App = strings.TrimSpace(req.App)
	req.Class = strings.TrimSpace(req.Class)
	req.Exec = strings.TrimSpace(req.Exec)

	if req.Class != "" && req.Exec != "" {
		return Target{Class: req.Class, Exec: req.Exec}, nil
	}

	target := Target{Class: req.Class, Exec: req.Exec}
	var resolveErr error
	if req.App != "" && resolver != nil {
		entry, err := resolver.Resolve(req.App)
		if err == nil {
			if target.Class == "" {
				target.Class = entry.Class
			}
			if target.Exec == "" {
				target.Exec = entry.Exec
			}
		} else {
			resolveErr = err
		}
	}
	if target.Class == "" {
		target.Class = req.App
	}
	if target.Exec == "" {
		return Target{}, &UnresolvedTargetError{App: req.App, Err: resolveErr}
	}
	return target, nil
}

// resolveClass is ResolveTarget for callers that only need the class, such
// as closing a window.
func resolveClass(req Request, resolver Resolver) (string, error) {
	if class := strings.TrimSpace(req.Class); class != "" {
		return class, nil
	}
	app := strings.TrimSpace(req.App)
	if app == "" {
		return "", &UnresolvedTargetError{}
	}
	if resolver != nil {
		if entry, err := resolver.Resolve(app); err == nil && entry.Class != "" {
			return entry.Class, nil
		}
	}
	return app, nil
}

// FindWindow returns the first window whose class equals class exactly.
// An empty class matches nothing.
func FindWindow(class string, windows []platform.Window) (platform.Window, bool) {
	if class == "" {
		return platform.Window{}, false
	}
	for _, w := range windows {
		if w.Class == class {
			return w, true
		}
	}
	return platform.Window{}, false
}
