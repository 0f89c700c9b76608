// Package hyprland reads clients, monitors and the cursor from a running
// Hyprland instance and dispatches focus and close requests to it.
package hyprland

import (
	"fmt"

	hypr "github.com/thiagokokada/hyprland-go"
)

// Requester is the part of the hyprland-go request client used here.
type Requester interface {
	Clients() ([]hypr.Client, error)
	Monitors() ([]hypr.Monitor, error)
	CursorPos() (hypr.CursorPos, error)
	Dispatch(params ...string) ([]hypr.Response, error)
}

var _ Requester = (*hypr.RequestClient)(nil)

// Workspace identifies the workspace a client lives on.
type Workspace struct {
	ID   int
	Name string
}

// Window is one entry of the client list.
type Window struct {
	Address      string
	Mapped       bool
	Hidden       bool
	Workspace    Workspace
	Monitor      int
	Class        string
	Title        string
	InitialClass string
	PID          int
}

type Monitor struct {
	ID      int
	Name    string
	X       int
	Y       int
	Width   int
	Height  int
	Scale   float64
	Focused bool
}

// CursorPos is in global layout coordinates.
type CursorPos struct {
	X float64
	Y float64
}

// Client issues requests through a Requester. Calls carry no deadline of
// their own; callers bound them.
type Client struct {
	req        Requester
	socketPath string
}

// NewClient talks to the request socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{req: hypr.NewClient(socketPath), socketPath: socketPath}
}

// NewClientWith uses req for every request.
func NewClientWith(req Requester) *Client {
	return &Client{req: req}
}

func (c *Client) SocketPath() string { return c.socketPath }

// Clients lists every client in the compositor's order, unmapped ones
// included.
func (c *Client) Clients() ([]Window, error) {
	clients, err := c.req.Clients()
	if err != nil {
		return nil, fmt.Errorf("hyprland clients: %w", err)
	}
	windows := make([]Window, 0, len(clients))
	for _, cl := range clients {
		windows = append(windows, Window{
			Address:      cl.Address,
			Mapped:       cl.Mapped,
			Hidden:       cl.Hidden,
			Workspace:    Workspace{ID: cl.Workspace.Id, Name: cl.Workspace.Name},
			Monitor:      cl.Monitor,
			Class:        cl.Class,
			Title:        cl.Title,
			InitialClass: cl.InitialClass,
			PID:          cl.Pid,
		})
	}
	return windows, nil
}

func (c *Client) Monitors() ([]Monitor, error) {
	monitors, err := c.req.Monitors()
	if err != nil {
		return nil, fmt.Errorf("hyprland monitors: %w", err)
	}
	out := make([]Monitor, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, Monitor{
			ID:      m.Id,
			Name:    m.Name,
			X:       m.X,
			Y:       m.Y,
			Width:   m.Width,
			Height:  m.Height,
			Scale:   m.Scale,
			Focused: m.Focused,
		})
	}
	return out, nil
}

func (c *Client) CursorPos() (CursorPos, error) {
	pos, err := c.req.CursorPos()
	if err != nil {
		return CursorPos{}, fmt.Errorf("hyprland cursorpos: %w", err)
	}
	return CursorPos{X: float64(pos.X), Y: float64(pos.Y)}, nil
}

// Dispatch runs a dispatcher, e.g. Dispatch("focuswindow", "address:0x1").
// A reply other than "ok" is an error.
func (c *Client) Dispatch(dispatcher string, args string) error {
	param := dispatcher
	if args != "" {
		param += " " + args
	}
	if _, err := c.req.Dispatch(param); err != nil {
		return fmt.Errorf("hyprland %s: %w", dispatcher, err)
	}
	return nil
}

// FocusWindow focuses the client with the given address, switching
// workspace if needed.
func (c *Client) FocusWindow(address string) error {
	return c.Dispatch("focuswindow", "address:"+address)
}

func (c *Client) CloseWindow(address string) error {
	return c.Dispatch("closewindow", "address:"+address)
}

// FocusedMonitor returns the monitor that currently has focus.
func (c *Client) FocusedMonitor() (Monitor, error) {
	monitors, err := c.Monitors()
	if err != nil {
		return Monitor{}, err
	}
	for _, m := range monitors {
		if m.Focused {
			return m, nil
		}
	}
	return Monitor{}, fmt.Errorf("hyprland reported no focused monitor")
}
