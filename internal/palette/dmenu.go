package palette

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strconv"
	"strings"
)

// ErrCancelled is returned when the picker is closed without a choice.
var ErrCancelled = errors.New("picker cancelled")

type backendKind int

const (
	kindRofi backendKind = iota
	kindFuzzel
	kindWofi
	kindDmenu
)

// dmenuLikeBackend drives any picker that reads rows on stdin and prints
// the choice on stdout.
type dmenuLikeBackend struct {
	command    string
	kind       backendKind
	caps       Capabilities
	args       []string // always passed
	promptFlag string
}

type rowStates struct {
	active []int
	urgent []int
}

func newRofiBackend() *dmenuLikeBackend {
	return &dmenuLikeBackend{
		command:    "rofi",
		kind:       kindRofi,
		caps:       Capabilities{Icons: true, Markup: true, IndexOutput: true, RowStates: true},
		args:       []string{"-dmenu", "-i", "-format", "i", "-no-custom", "-markup-rows", "-show-icons"},
		promptFlag: "-p",
	}
}

func newFuzzelBackend() *dmenuLikeBackend {
	return &dmenuLikeBackend{
		command:    "fuzzel",
		kind:       kindFuzzel,
		caps:       Capabilities{Icons: true, IndexOutput: true},
		args:       []string{"--dmenu", "--index"},
		promptFlag: "--prompt",
	}
}

func newWofiBackend() *dmenuLikeBackend {
	return &dmenuLikeBackend{
		command:    "wofi",
		kind:       kindWofi,
		caps:       Capabilities{Icons: true, Markup: true},
		args:       []string{"--dmenu", "--allow-markup", "--allow-images"},
		promptFlag: "--prompt",
	}
}

func newDmenuBackend() *dmenuLikeBackend {
	return &dmenuLikeBackend{
		command:    "dmenu",
		kind:       kindDmenu,
		args:       []string{"-i"},
		promptFlag: "-p",
	}
}

func (b *dmenuLikeBackend) Name() string               { return b.command }
func (b *dmenuLikeBackend) Capabilities() Capabilities { return b.caps }

func (b *dmenuLikeBackend) Show(ctx context.Context, prompt string, items []Item) (Item, error) {
	if len(items) == 0 {
		return Item{}, errors.New("picker: no items to show")
	}

	rows := append([]Item(nil), items...)
	input, states := b.formatInput(rows)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, b.command, b.buildArgs(prompt, states)...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	choice := strings.TrimSpace(stdout.String())
	switch {
	case choice == "" && (runErr == nil || cancelled(runErr)):
		return Item{}, ErrCancelled
	case runErr != nil:
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Item{}, fmt.Errorf("%s: %s", b.command, msg)
		}
		return Item{}, fmt.Errorf("%s: %w", b.command, runErr)
	}
	return b.parseSelection(choice, rows)
}

func (b *dmenuLikeBackend) buildArgs(prompt string, states rowStates) []string {
	args := append([]string(nil), b.args...)
	if prompt != "" {
		args = append(args, b.promptFlag, prompt)
	}
	if b.caps.RowStates {
		if len(states.active) > 0 {
			args = append(args, "-a", joinInts(states.active))
		}
		if len(states.urgent) > 0 {
			args = append(args, "-u", joinInts(states.urgent))
		}
	}
	return args
}

// formatInput renders one line per item. Pickers that echo the row text
// back get unique labels so the choice can be matched.
func (b *dmenuLikeBackend) formatInput(items []Item) (string, rowStates) {
	if !b.caps.IndexOutput {
		seen := make(map[string]int)
		for i := range items {
			key := sanitizeLabel(items[i].Label)
			if count := seen[key]; count > 0 {
				items[i].Label = fmt.Sprintf("%s (%d)", key, count+1)
			}
			seen[key]++
		}
	}

	var states rowStates
	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, b.formatItem(item))
		if b.caps.RowStates {
			if item.IsActive {
				states.active = append(states.active, i)
			}
			if item.IsUrgent {
				states.urgent = append(states.urgent, i)
			}
		}
	}
	return strings.Join(lines, "\n"), states
}

func (b *dmenuLikeBackend) formatItem(item Item) string {
	display := sanitizeLabel(item.Label)
	if b.caps.Markup {
		display = html.EscapeString(display)
	}

	switch b.kind {
	case kindRofi:
		// Row properties follow a single NUL, pairs separated by \x1f.
		var attrs []string
		if item.Icon != "" {
			attrs = append(attrs, "icon", sanitizeField(item.Icon))
		}
		if item.Meta != "" {
			attrs = append(attrs, "meta", sanitizeField(item.Meta))
		}
		if len(attrs) == 0 {
			return display
		}
		return display + "\x00" + strings.Join(attrs, "\x1f")
	case kindFuzzel:
		if item.Icon != "" {
			return display + "\x00icon\x1f" + sanitizeField(item.Icon)
		}
	case kindWofi:
		if strings.HasPrefix(item.Icon, "/") {
			return "img:" + sanitizeField(item.Icon) + ":text:" + display
		}
	}
	return display
}

func (b *dmenuLikeBackend) parseSelection(selection string, items []Item) (Item, error) {
	if b.caps.IndexOutput {
		if idx, err := strconv.Atoi(selection); err == nil {
			if idx < 0 || idx >= len(items) {
				return Item{}, fmt.Errorf("picker: index %d out of range", idx)
			}
			return items[idx], nil
		}
	}
	if b.kind == kindWofi {
		if i := strings.LastIndex(selection, ":text:"); i >= 0 {
			selection = selection[i+len(":text:"):]
		}
		selection = html.UnescapeString(selection)
	}
	for _, item := range items {
		if sanitizeLabel(item.Label) == selection {
			return item, nil
		}
	}
	return Item{}, fmt.Errorf("picker: unknown selection %q", selection)
}

var (
	lineBreaks   = strings.NewReplacer("\r", " ", "\n", " ")
	rowDelimiter = strings.NewReplacer("\x00", " ", "\x1f", " ", "\r", " ", "\n", " ")
)

// sanitizeLabel keeps a label on one line.
func sanitizeLabel(label string) string {
	return strings.TrimSpace(lineBreaks.Replace(label))
}

// sanitizeField also strips the separators of rofi's row property syntax.
func sanitizeField(value string) string {
	return strings.TrimSpace(rowDelimiter.Replace(value))
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// cancelled reports the exit codes pickers use when nothing was chosen:
// 1 for Escape, 130 for Ctrl+C.
func cancelled(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	code := exitErr.ExitCode()
	return code == 1 || code == 130
}
