package platform

import (
	"context"
	"strconv"

	"github.com/troia/halo/internal/hyprland"
)

// HyprlandDirectory serves windows from a running Hyprland instance. Its
// requests ignore ctx; wrap it with Bounded to give them a deadline.
type HyprlandDirectory struct {
	client *hyprland.Client
}

var _ Directory = (*HyprlandDirectory)(nil)

func NewHyprlandDirectory(client *hyprland.Client) *HyprlandDirectory {
	return &HyprlandDirectory{client: client}
}

func (d *HyprlandDirectory) Name() string { return "hyprland" }

// ListWindows skips unmapped clients and keeps Hyprland's order.
func (d *HyprlandDirectory) ListWindows(ctx context.Context) ([]Window, error) {
	clients, err := d.client.Clients()
	if err != nil {
		return nil, err
	}
	windows := make([]Window, 0, len(clients))
	for _, c := range clients {
		if !c.Mapped {
			continue
		}
		workspace := c.Workspace.Name
		if workspace == "" {
			workspace = strconv.Itoa(c.Workspace.ID)
		}
		windows = append(windows, Window{
			Address:   Address(c.Address),
			Class:     c.Class,
			Title:     c.Title,
			Workspace: workspace,
			PID:       c.PID,
		})
	}
	return windows, nil
}

func (d *HyprlandDirectory) Focus(ctx context.Context, addr Address) error {
	return d.client.FocusWindow(string(addr))
}

func (d *HyprlandDirectory) Close(ctx context.Context, addr Address) error {
	return d.client.CloseWindow(string(addr))
}

// CursorPosition is relative to the focused monitor's origin.
func (d *HyprlandDirectory) CursorPosition(ctx context.Context) (Point, error) {
	pos, err := d.client.CursorPos()
	if err != nil {
		return Point{}, err
	}
	mon, err := d.client.FocusedMonitor()
	if err != nil {
		return Point{}, err
	}
	return Point{
		X:       pos.X - float64(mon.X),
		Y:       pos.Y - float64(mon.Y),
		Monitor: mon.Name,
	}, nil
}
