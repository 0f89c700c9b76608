package palette

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// terminalBackend shows the items as a list in the controlling terminal.
type terminalBackend struct{}

func newTerminalBackend() *terminalBackend { return &terminalBackend{} }

func (terminalBackend) Name() string { return "tui" }

func (terminalBackend) Capabilities() Capabilities {
	return Capabilities{IndexOutput: true, RowStates: true}
}

func (b terminalBackend) Show(ctx context.Context, prompt string, items []Item) (Item, error) {
	if len(items) == 0 {
		return Item{}, errors.New("picker: no items to show")
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stderr.Fd())) {
		return Item{}, errors.New("tui picker requires an interactive terminal")
	}

	p := tea.NewProgram(newPickModel(prompt, items),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return Item{}, fmt.Errorf("tui picker: %w", err)
	}
	m := final.(pickModel)
	if m.chosen < 0 {
		return Item{}, ErrCancelled
	}
	return items[m.chosen], nil
}

var (
	activeMark = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
	urgentMark = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("!")
	idleMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("·")
)

type pickItem struct {
	Item
	index int
}

func (i pickItem) Title() string {
	switch {
	case i.IsUrgent:
		return urgentMark + " " + sanitizeLabel(i.Label)
	case i.IsActive:
		return activeMark + " " + sanitizeLabel(i.Label)
	}
	return idleMark + " " + sanitizeLabel(i.Label)
}

func (i pickItem) Description() string { return i.Meta }
func (i pickItem) FilterValue() string { return i.Label + " " + i.Meta }

type pickModel struct {
	list   list.Model
	chosen int
}

func newPickModel(prompt string, items []Item) pickModel {
	rows := make([]list.Item, len(items))
	for i, it := range items {
		rows[i] = pickItem{Item: it, index: i}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("62"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("62"))

	l := list.New(rows, delegate, 0, 0)
	l.Title = prompt
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	l.SetShowStatusBar(false)
	l.KeyMap.Quit.SetEnabled(false)

	return pickModel{list: l, chosen: -1}
}

func (m pickModel) Init() tea.Cmd { return nil }

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.chosen = -1
			return m, tea.Quit
		case "enter":
			if it, ok := m.list.SelectedItem().(pickItem); ok {
				m.chosen = it.index
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickModel) View() string { return m.list.View() }
