package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/desktop"
)

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file",
	}
	cmd.AddCommand(configValidateCmd(configPath), configPrintCmd(configPath), configPathCmd(configPath))
	return cmd
}

func configValidateCmd(configPath *string) *cobra.Command {
	var noResolve bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(*configPath)
			if err != nil {
				return err
			}
			var resolver config.Resolver
			if !noResolve {
				resolver = desktop.NewDefaultResolver(nil)
			}
			cfg, err := config.LoadFromPath(path, resolver)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.IsSetup() {
				fmt.Fprintf(out, "config: %s does not exist; run `halo setup` to create it\n", path)
				return nil
			}
			fmt.Fprintf(out, "config: ok (%d slots)\n", len(cfg.Slots))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noResolve, "no-resolve", false, "Skip checking apps against installed desktop entries")
	return cmd
}

func configPrintCmd(configPath *string) *cobra.Command {
	var format string
	var defaults bool
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			if defaults {
				parsed, err := config.Parse(config.DefaultConfig(), config.FormatYAML)
				if err != nil {
					return err
				}
				cfg = parsed
			} else {
				path, err := resolveConfigPath(*configPath)
				if err != nil {
					return err
				}
				if cfg, err = config.LoadFromPath(path, nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", path)
			}

			var f config.Format
			switch strings.ToLower(format) {
			case "yaml", "yml":
				f = config.FormatYAML
			case "toml":
				f = config.FormatTOML
			default:
				return fmt.Errorf("unknown format %q (want yaml or toml)", format)
			}
			data, err := cfg.Encode(f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format (yaml, toml)")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print the built-in default configuration")
	return cmd
}

func configPathCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(*configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func setupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Write the default configuration file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(*configPath)
			if err != nil {
				return err
			}
			created, err := config.WriteDefault(path)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			} else {
				fmt.Fprintf(os.Stderr, "%s already exists; left unchanged\n", path)
			}
			return nil
		},
	}
}
