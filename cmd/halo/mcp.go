package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/troia/halo/internal/ipc"
	"github.com/troia/halo/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var socket string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server (stdio transport)",
		Long: `Start the MCP server on stdio. It forwards tool calls to the running halo
daemon and is meant to be launched by MCP clients, for example:

  claude mcp add halo -- halo mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol; logs go to stderr.
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			client := ipc.NewClient()
			if socket != "" {
				client = ipc.NewClientWithPath(socket)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return mcp.NewServer(client, logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&socket, "socket", "", "Daemon socket path (default: $XDG_RUNTIME_DIR/halo.sock)")
	return cmd
}
