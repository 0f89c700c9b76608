// Package palette presents the slot menu through an external dmenu-style
// picker (rofi, fuzzel, wofi or dmenu). It is a text front end for the
// daemon's menu: the caller lists slots and sends the chosen direction back
// as a SELECT.
package palette

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Item is a single selectable row.
type Item struct {
	Label    string
	Key      string // returned to the caller on selection
	Icon     string // icon name or absolute path, rofi/wofi only
	Meta     string // extra search keywords, rofi only
	IsActive bool   // highlighted, used for running slots
	IsUrgent bool   // highlighted, used for broken slots
}

// Capabilities describes what a picker supports.
type Capabilities struct {
	Icons       bool
	Markup      bool
	IndexOutput bool // prints the row index instead of the row text
	RowStates   bool // active/urgent highlighting
}

// Backend shows a list of items and returns the chosen one.
type Backend interface {
	Show(ctx context.Context, prompt string, items []Item) (Item, error)
	Name() string
	Capabilities() Capabilities
}

var knownBackends = []string{"rofi", "fuzzel", "wofi", "dmenu"}

// NewBackend creates a backend by name. An empty name or "auto" picks the
// first picker found in PATH; "tui" uses the controlling terminal.
func NewBackend(name string) (Backend, error) {
	return newBackend(name, exec.LookPath)
}

func newBackend(name string, lookPath func(string) (string, error)) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "tui" {
		return newTerminalBackend(), nil
	}
	if name == "" || name == "auto" {
		detected, err := detectBackend(lookPath)
		if err != nil {
			return nil, err
		}
		name = detected
	}

	var b *dmenuLikeBackend
	switch name {
	case "rofi":
		b = newRofiBackend()
	case "fuzzel":
		b = newFuzzelBackend()
	case "wofi":
		b = newWofiBackend()
	case "dmenu":
		b = newDmenuBackend()
	default:
		return nil, fmt.Errorf("unknown picker %q (expected: auto, tui, %s)", name, strings.Join(knownBackends, ", "))
	}
	if _, err := lookPath(b.command); err != nil {
		return nil, fmt.Errorf("picker %q not found in PATH", b.command)
	}
	return b, nil
}
