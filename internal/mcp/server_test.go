package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/ipc"
	"github.com/troia/halo/internal/platform"
)

type fakeDaemon struct {
	err      error
	runs     []engine.Request
	selected []config.Direction
	anchor   *platform.Point
}

func (d *fakeDaemon) Show(ctx context.Context, anchor *platform.Point) (*ipc.VisibilityData, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.anchor = anchor
	at := platform.Point{X: 3, Y: 4}
	if anchor != nil {
		at = *anchor
	}
	return &ipc.VisibilityData{Visible: true, Changed: true, Anchor: &at}, nil
}

func (d *fakeDaemon) Hide(ctx context.Context) (*ipc.VisibilityData, error) {
	return &ipc.VisibilityData{}, d.err
}

func (d *fakeDaemon) Run(ctx context.Context, req engine.Request) (*engine.Outcome, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.runs = append(d.runs, req)
	return &engine.Outcome{
		Action: engine.Action{Kind: engine.ActionFocus, Address: "0x5"},
		Target: engine.Target{Class: "kitty", Exec: "kitty"},
	}, nil
}

func (d *fakeDaemon) Select(ctx context.Context, dir config.Direction) (*ipc.SelectData, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.selected = append(d.selected, dir)
	return &ipc.SelectData{Direction: dir, Outcome: &engine.Outcome{
		Action: engine.Action{Kind: engine.ActionLaunch, Exec: "firefox"},
		Target: engine.Target{Class: "firefox", Exec: "firefox"},
	}}, nil
}

func (d *fakeDaemon) Close(ctx context.Context, dir config.Direction) (*ipc.CloseData, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &ipc.CloseData{Direction: dir, Window: platform.Window{Address: "0x9", Class: "kitty", Title: "shell"}}, nil
}

func (d *fakeDaemon) Slots(ctx context.Context) (*ipc.SlotsData, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &ipc.SlotsData{Slots: []ipc.SlotInfo{
		{Direction: config.North, App: "Firefox", Class: "firefox", Exec: "firefox", Running: true},
		{Direction: config.East, App: "Ghost", Error: "no desktop entry"},
	}}, nil
}

func (d *fakeDaemon) GetStatus(ctx context.Context) (*ipc.StatusData, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &ipc.StatusData{Version: 7, Slots: 4, Backend: "hyprland", DaemonRunning: true}, nil
}

func (d *fakeDaemon) Reload(ctx context.Context) (*ipc.ReloadData, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &ipc.ReloadData{Version: 8, Slots: 4}, nil
}

func TestRunOrRaise(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)

	_, out, err := s.handleRunOrRaise(context.Background(), nil, RunOrRaiseInput{App: " kitty "})
	if err != nil {
		t.Fatalf("run_or_raise: %v", err)
	}
	if out.Action != "focus" || out.Address != "0x5" || out.Class != "kitty" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(d.runs) != 1 || d.runs[0].App != "kitty" {
		t.Fatalf("unexpected requests: %+v", d.runs)
	}
}

func TestRunOrRaise_RequiresApp(t *testing.T) {
	s := NewServer(&fakeDaemon{}, nil)

	if _, _, err := s.handleRunOrRaise(context.Background(), nil, RunOrRaiseInput{Class: "kitty"}); err == nil {
		t.Fatal("expected error without app or exec")
	}
	if _, _, err := s.handleRunOrRaise(context.Background(), nil, RunOrRaiseInput{Class: "kitty", Exec: "kitty"}); err != nil {
		t.Fatalf("class and exec should suffice: %v", err)
	}
}

func TestRunOrRaise_UnreachableHint(t *testing.T) {
	s := NewServer(&fakeDaemon{err: ipc.ErrDaemonUnreachable}, nil)

	_, _, err := s.handleRunOrRaise(context.Background(), nil, RunOrRaiseInput{App: "kitty"})
	if !errors.Is(err, ipc.ErrDaemonUnreachable) {
		t.Fatalf("expected ErrDaemonUnreachable, got %v", err)
	}
	if !strings.Contains(err.Error(), "halo daemon") {
		t.Fatalf("expected start hint, got %q", err)
	}
}

func TestSelectSlot(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)

	_, out, err := s.handleSelectSlot(context.Background(), nil, DirectionInput{Direction: "ne"})
	if err != nil {
		t.Fatalf("select_slot: %v", err)
	}
	if out.Direction != "northeast" || out.Result == nil || out.Result.Action != "launch" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(d.selected) != 1 || d.selected[0] != config.NorthEast {
		t.Fatalf("unexpected selection: %v", d.selected)
	}

	if _, _, err := s.handleSelectSlot(context.Background(), nil, DirectionInput{Direction: "up"}); err == nil {
		t.Fatal("expected error for invalid direction")
	}
}

func TestCloseSlot(t *testing.T) {
	s := NewServer(&fakeDaemon{}, nil)

	_, out, err := s.handleCloseSlot(context.Background(), nil, DirectionInput{Direction: "east"})
	if err != nil {
		t.Fatalf("close_slot: %v", err)
	}
	if out.Address != "0x9" || out.Title != "shell" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestShowMenu(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)

	_, out, err := s.handleShowMenu(context.Background(), nil, ShowMenuInput{})
	if err != nil {
		t.Fatalf("show_menu: %v", err)
	}
	if d.anchor != nil {
		t.Fatalf("expected pointer anchoring, got %+v", d.anchor)
	}
	if !out.Visible || out.X != 3 || out.Y != 4 {
		t.Fatalf("unexpected output: %+v", out)
	}

	x, y := 100.0, 200.0
	_, out, err = s.handleShowMenu(context.Background(), nil, ShowMenuInput{X: &x, Y: &y, Monitor: "DP-1"})
	if err != nil {
		t.Fatalf("show_menu: %v", err)
	}
	if out.X != 100 || out.Monitor != "DP-1" {
		t.Fatalf("unexpected output: %+v", out)
	}

	if _, _, err := s.handleShowMenu(context.Background(), nil, ShowMenuInput{X: &x}); err == nil {
		t.Fatal("expected error for x without y")
	}
}

func TestListSlots(t *testing.T) {
	s := NewServer(&fakeDaemon{}, nil)

	_, out, err := s.handleListSlots(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("list_slots: %v", err)
	}
	if len(out.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(out.Slots))
	}
	if out.Slots[0].Direction != "north" || !out.Slots[0].Running {
		t.Fatalf("unexpected first slot: %+v", out.Slots[0])
	}
	if out.Slots[1].Error == "" {
		t.Fatalf("expected resolution error on second slot: %+v", out.Slots[1])
	}
}

func TestDaemonStatus(t *testing.T) {
	s := NewServer(&fakeDaemon{}, nil)
	_, out, err := s.handleDaemonStatus(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("daemon_status: %v", err)
	}
	if !out.Running || out.Version != 7 || out.Backend != "hyprland" {
		t.Fatalf("unexpected output: %+v", out)
	}

	s = NewServer(&fakeDaemon{err: ipc.ErrDaemonUnreachable}, nil)
	_, out, err = s.handleDaemonStatus(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("stopped daemon should not be an error: %v", err)
	}
	if out.Running {
		t.Fatal("expected running=false")
	}
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	s := NewServer(&fakeDaemon{}, nil)

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"run_or_raise", "select_slot", "close_slot", "show_menu", "hide_menu", "list_slots", "daemon_status", "reload_config"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "run_or_raise",
		Arguments: map[string]any{"app": "kitty"},
	})
	if err != nil {
		t.Fatalf("call run_or_raise: %v", err)
	}
	if res.IsError {
		t.Fatalf("run_or_raise returned a tool error: %+v", res.Content)
	}
}
