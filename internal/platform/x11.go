package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/troia/halo/internal/x11"
)

// X11Directory serves windows from an EWMH-compliant X11 window manager.
// The connection is opened on first use and reopened after a failure.
type X11Directory struct {
	mu   sync.Mutex
	conn *x11.Connection
	dial func() (*x11.Connection, error)
}

var _ Directory = (*X11Directory)(nil)

func NewX11Directory() *X11Directory {
	return &X11Directory{dial: x11.NewConnection}
}

func (d *X11Directory) Name() string { return "x11" }

// Disconnect closes the underlying X11 connection, if any.
func (d *X11Directory) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// with runs fn on a live connection and drops the connection if fn fails so
// the next call reconnects.
func (d *X11Directory) with(fn func(*x11.Connection) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		conn, err := d.dial()
		if err != nil {
			return err
		}
		d.conn = conn
	}
	if err := fn(d.conn); err != nil {
		d.conn.Close()
		d.conn = nil
		return err
	}
	return nil
}

func (d *X11Directory) ListWindows(ctx context.Context) ([]Window, error) {
	var windows []Window
	err := d.with(func(conn *x11.Connection) error {
		clients, err := conn.Clients()
		if err != nil {
			return err
		}
		windows = make([]Window, 0, len(clients))
		for _, c := range clients {
			workspace := "all"
			if c.Desktop != x11.StickyDesktop {
				workspace = strconv.Itoa(c.Desktop)
			}
			windows = append(windows, Window{
				Address:   FormatX11Address(c.ID),
				Class:     c.Class,
				Title:     c.Title,
				Workspace: workspace,
				PID:       c.PID,
			})
		}
		return nil
	})
	return windows, err
}

func (d *X11Directory) Focus(ctx context.Context, addr Address) error {
	id, err := ParseX11Address(addr)
	if err != nil {
		return err
	}
	return d.with(func(conn *x11.Connection) error { return conn.FocusWindow(id) })
}

func (d *X11Directory) Close(ctx context.Context, addr Address) error {
	id, err := ParseX11Address(addr)
	if err != nil {
		return err
	}
	return d.with(func(conn *x11.Connection) error { return conn.CloseWindow(id) })
}

// CursorPosition is relative to the monitor under the pointer.
func (d *X11Directory) CursorPosition(ctx context.Context) (Point, error) {
	var p Point
	err := d.with(func(conn *x11.Connection) error {
		x, y, mon, err := conn.PointerMonitor()
		if err != nil {
			return err
		}
		p = Point{X: float64(x - mon.X), Y: float64(y - mon.Y), Monitor: mon.Name}
		return nil
	})
	return p, err
}

func FormatX11Address(id xproto.Window) Address {
	return Address(fmt.Sprintf("0x%x", uint32(id)))
}

func ParseX11Address(addr Address) (xproto.Window, error) {
	s := strings.TrimPrefix(strings.ToLower(string(addr)), "0x")
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid x11 window address %q", addr)
	}
	return xproto.Window(n), nil
}
