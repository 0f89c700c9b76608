package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/ipc"
	"github.com/troia/halo/internal/platform"
)

func (s *Server) handleRunOrRaise(ctx context.Context, _ *mcpsdk.CallToolRequest, args RunOrRaiseInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	req := engine.Request{
		App:   strings.TrimSpace(args.App),
		Class: strings.TrimSpace(args.Class),
		Exec:  strings.TrimSpace(args.Exec),
	}
	if req.App == "" && (req.Class == "" || req.Exec == "") {
		return nil, ActionOutput{}, fmt.Errorf("app is required unless both class and exec are given")
	}

	out, err := s.daemon.Run(ctx, req)
	if err != nil {
		s.logger.Warn("run_or_raise failed", "app", req.App, "error", err)
		return nil, ActionOutput{}, toolError(err)
	}
	s.logger.Info("run_or_raise", "app", req.App, "action", out.Action.Kind.String())
	return nil, actionOutput(*out), nil
}

func (s *Server) handleSelectSlot(ctx context.Context, _ *mcpsdk.CallToolRequest, args DirectionInput) (*mcpsdk.CallToolResult, SelectSlotOutput, error) {
	dir, err := config.ParseDirection(args.Direction)
	if err != nil {
		return nil, SelectSlotOutput{}, err
	}
	data, err := s.daemon.Select(ctx, dir)
	if err != nil {
		return nil, SelectSlotOutput{}, toolError(err)
	}
	out := SelectSlotOutput{Direction: dir.String(), Setup: data.Setup, ConfigPath: data.ConfigPath}
	if data.Outcome != nil {
		action := actionOutput(*data.Outcome)
		out.Result = &action
	}
	return nil, out, nil
}

func (s *Server) handleCloseSlot(ctx context.Context, _ *mcpsdk.CallToolRequest, args DirectionInput) (*mcpsdk.CallToolResult, CloseSlotOutput, error) {
	dir, err := config.ParseDirection(args.Direction)
	if err != nil {
		return nil, CloseSlotOutput{}, err
	}
	data, err := s.daemon.Close(ctx, dir)
	if err != nil {
		return nil, CloseSlotOutput{}, toolError(err)
	}
	return nil, CloseSlotOutput{
		Direction: dir.String(),
		Address:   string(data.Window.Address),
		Class:     data.Window.Class,
		Title:     data.Window.Title,
	}, nil
}

func (s *Server) handleShowMenu(ctx context.Context, _ *mcpsdk.CallToolRequest, args ShowMenuInput) (*mcpsdk.CallToolResult, MenuOutput, error) {
	var anchor *platform.Point
	switch {
	case args.X != nil && args.Y != nil:
		anchor = &platform.Point{X: *args.X, Y: *args.Y, Monitor: args.Monitor}
	case args.X != nil || args.Y != nil:
		return nil, MenuOutput{}, fmt.Errorf("x and y must be given together")
	}
	data, err := s.daemon.Show(ctx, anchor)
	if err != nil {
		return nil, MenuOutput{}, toolError(err)
	}
	return nil, menuOutput(data), nil
}

func (s *Server) handleHideMenu(ctx context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, MenuOutput, error) {
	data, err := s.daemon.Hide(ctx)
	if err != nil {
		return nil, MenuOutput{}, toolError(err)
	}
	return nil, menuOutput(data), nil
}

func (s *Server) handleListSlots(ctx context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ListSlotsOutput, error) {
	data, err := s.daemon.Slots(ctx)
	if err != nil {
		return nil, ListSlotsOutput{}, toolError(err)
	}
	out := ListSlotsOutput{Slots: make([]SlotOutput, 0, len(data.Slots))}
	for _, slot := range data.Slots {
		out.Slots = append(out.Slots, SlotOutput{
			Direction: slot.Direction.String(),
			App:       slot.App,
			Class:     slot.Class,
			Exec:      slot.Exec,
			Icon:      slot.Icon,
			Running:   slot.Running,
			Setup:     slot.Setup,
			Error:     slot.Error,
		})
	}
	return nil, out, nil
}

// handleDaemonStatus reports a stopped daemon as a result rather than an
// error.
func (s *Server) handleDaemonStatus(ctx context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	data, err := s.daemon.GetStatus(ctx)
	if errors.Is(err, ipc.ErrDaemonUnreachable) {
		return nil, StatusOutput{Running: false}, nil
	}
	if err != nil {
		return nil, StatusOutput{}, toolError(err)
	}
	return nil, StatusOutput{
		Running:         true,
		Version:         data.Version,
		Visible:         data.Visible,
		UptimeSeconds:   data.UptimeSeconds,
		ConfigPath:      data.ConfigPath,
		Setup:           data.Setup,
		Slots:           data.Slots,
		Backend:         data.Backend,
		LastConfigError: data.LastConfigError,
	}, nil
}

func (s *Server) handleReloadConfig(ctx context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ReloadOutput, error) {
	data, err := s.daemon.Reload(ctx)
	if err != nil {
		return nil, ReloadOutput{}, toolError(err)
	}
	return nil, ReloadOutput{Version: data.Version, Slots: data.Slots, Setup: data.Setup}, nil
}

func actionOutput(out engine.Outcome) ActionOutput {
	return ActionOutput{
		Action:  out.Action.Kind.String(),
		Class:   out.Target.Class,
		Address: string(out.Action.Address),
		Exec:    out.Action.Exec,
	}
}

func menuOutput(data *ipc.VisibilityData) MenuOutput {
	out := MenuOutput{Visible: data.Visible, Changed: data.Changed}
	if data.Anchor != nil {
		out.X = data.Anchor.X
		out.Y = data.Anchor.Y
		out.Monitor = data.Anchor.Monitor
	}
	return out
}

// toolError adds a hint for the failures an assistant can act on.
func toolError(err error) error {
	switch {
	case errors.Is(err, ipc.ErrDaemonUnreachable):
		return fmt.Errorf("%w; start it with `halo daemon`", err)
	case errors.Is(err, engine.ErrUnresolvedTarget):
		return fmt.Errorf("%w; pass class and exec explicitly", err)
	default:
		return err
	}
}
