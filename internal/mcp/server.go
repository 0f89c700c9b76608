// Package mcp exposes the daemon's run-or-raise operations as MCP tools over
// stdio, so that assistants can focus or launch applications for the user.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/ipc"
	"github.com/troia/halo/internal/platform"
)

const (
	ServerName    = "halo"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools call. *ipc.Client
// satisfies it.
type Daemon interface {
	Show(ctx context.Context, anchor *platform.Point) (*ipc.VisibilityData, error)
	Hide(ctx context.Context) (*ipc.VisibilityData, error)
	Run(ctx context.Context, req engine.Request) (*engine.Outcome, error)
	Select(ctx context.Context, dir config.Direction) (*ipc.SelectData, error)
	Close(ctx context.Context, dir config.Direction) (*ipc.CloseData, error)
	Slots(ctx context.Context) (*ipc.SlotsData, error)
	GetStatus(ctx context.Context) (*ipc.StatusData, error)
	Reload(ctx context.Context) (*ipc.ReloadData, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server forwarding tool calls to the daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server backed by daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: daemon, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "run_or_raise",
		Description: "Focus the most relevant window of an application, or launch it when no window is open. Pass app alone to resolve class and command from its desktop entry, or class and exec to bypass the lookup.",
	}, s.handleRunOrRaise)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "select_slot",
		Description: "Run the menu slot at a direction, exactly as if the user had picked it, then hide the menu.",
	}, s.handleSelectSlot)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_slot",
		Description: "Close the first open window of the application bound to a menu slot.",
	}, s.handleCloseSlot)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_menu",
		Description: "Show the radial menu at the given coordinates, or at the pointer when none are given.",
	}, s.handleShowMenu)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hide_menu",
		Description: "Hide the radial menu.",
	}, s.handleHideMenu)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_slots",
		Description: "List the configured menu slots with their resolved window class, launch command and whether the application is running.",
	}, s.handleListSlots)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "daemon_status",
		Description: "Report whether the daemon is running, its configuration version and the last configuration error.",
	}, s.handleDaemonStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Reload the configuration file now. On error the previous configuration stays in effect.",
	}, s.handleReloadConfig)
}
