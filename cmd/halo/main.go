package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/troia/halo/internal/cli"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "halo",
		Short:   "Radial run-or-raise launcher daemon",
		Version: version,
		Long: `halo keeps a radial menu of application slots and focuses or launches the
application behind a slot when it is selected. The daemon is controlled with
hypraise over a unix socket.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("Config file path (default: $HALO_CONFIG or %s)", defaultPathHint()))

	rootCmd.AddCommand(daemonCmd(&configPath))
	rootCmd.AddCommand(configCmd(&configPath))
	rootCmd.AddCommand(setupCmd(&configPath))
	rootCmd.AddCommand(mcpCmd())

	os.Exit(cli.Execute(rootCmd, os.Args[1:], os.Stderr))
}
