package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// StickyDesktop is the _NET_WM_DESKTOP value of windows shown on every
// desktop.
const StickyDesktop = -1

// sourcePager marks client messages as coming from a pager, which window
// managers honour without focus-stealing checks.
const sourcePager = 2

// Client describes a managed top-level window.
type Client struct {
	ID      xproto.Window
	Class   string
	Title   string
	Desktop int
	PID     int
}

// Clients returns the managed normal windows in _NET_CLIENT_LIST order.
func (c *Connection) Clients() ([]Client, error) {
	ids, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}

	clients := make([]Client, 0, len(ids))
	for _, id := range ids {
		if !c.IsNormalWindow(id) {
			continue
		}
		client := Client{
			ID:      id,
			Class:   c.WindowClass(id),
			Title:   c.WindowTitle(id),
			Desktop: c.WindowDesktop(id),
		}
		if pid, err := ewmh.WmPidGet(c.XUtil, id); err == nil {
			client.PID = int(pid)
		}
		clients = append(clients, client)
	}
	return clients, nil
}

// WindowClass returns the class part of WM_CLASS, or "" when unset.
func (c *Connection) WindowClass(id xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, id)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// WindowTitle prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) WindowTitle(id xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, id); err == nil && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if title, err := icccm.WmNameGet(c.XUtil, id); err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// WindowDesktop returns the desktop index of id, StickyDesktop for windows on
// all desktops, or StickyDesktop when the property is missing.
func (c *Connection) WindowDesktop(id xproto.Window) int {
	desktop, err := ewmh.WmDesktopGet(c.XUtil, id)
	if err != nil || desktop == 0xFFFFFFFF {
		return StickyDesktop
	}
	return int(desktop)
}

// IsNormalWindow filters out docks, desktops, splash screens and
// notifications. Windows without a type are treated as normal.
func (c *Connection) IsNormalWindow(id xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, id)
	if err != nil {
		return true
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}
	return len(types) == 0
}

// FocusWindow switches to the window's desktop when needed and activates it
// through _NET_ACTIVE_WINDOW. The helpers in ewmh are avoided because they
// panic on this xgbutil version.
func (c *Connection) FocusWindow(id xproto.Window) error {
	if desktop := c.WindowDesktop(id); desktop != StickyDesktop {
		current, err := ewmh.CurrentDesktopGet(c.XUtil)
		if err == nil && int(current) != desktop {
			if err := c.sendRootMessage(c.Root, "_NET_CURRENT_DESKTOP", uint32(desktop), 0); err != nil {
				return fmt.Errorf("failed to switch desktop: %w", err)
			}
		}
	}
	if err := c.sendRootMessage(id, "_NET_ACTIVE_WINDOW", sourcePager, 0, 0); err != nil {
		return fmt.Errorf("failed to activate window: %w", err)
	}
	return nil
}

// CloseWindow asks the client to close gracefully via WM_DELETE_WINDOW.
func (c *Connection) CloseWindow(id xproto.Window) error {
	protocols, err := c.atom("WM_PROTOCOLS")
	if err != nil {
		return err
	}
	deleteWindow, err := c.atom("WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: id,
		Type:   protocols,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteWindow), 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		id,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}
