package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/engine"
	"github.com/troia/halo/internal/ipc"
	"github.com/troia/halo/internal/palette"
	"github.com/troia/halo/internal/platform"
)

// Daemon is the IPC surface hypraise uses. *ipc.Client satisfies it.
type Daemon interface {
	Show(ctx context.Context, anchor *platform.Point) (*ipc.VisibilityData, error)
	Hide(ctx context.Context) (*ipc.VisibilityData, error)
	Toggle(ctx context.Context) (*ipc.VisibilityData, error)
	Run(ctx context.Context, req engine.Request) (*engine.Outcome, error)
	Select(ctx context.Context, dir config.Direction) (*ipc.SelectData, error)
	Close(ctx context.Context, dir config.Direction) (*ipc.CloseData, error)
	Slots(ctx context.Context) (*ipc.SlotsData, error)
	GetStatus(ctx context.Context) (*ipc.StatusData, error)
	Reload(ctx context.Context) (*ipc.ReloadData, error)
	Rebuild(ctx context.Context) (*ipc.RebuildData, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Options wires the commands to their collaborators. Zero fields get the
// production defaults.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// NewClient returns the daemon client for socket; "" means the default
	// socket path.
	NewClient  func(socket string) Daemon
	Standalone StandaloneFunc
	// Picker opens the external menu used by "hypraise pick".
	Picker func(name string) (palette.Backend, error)
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.NewClient == nil {
		o.NewClient = func(socket string) Daemon {
			if socket == "" {
				return ipc.NewClient()
			}
			return ipc.NewClientWithPath(socket)
		}
	}
	if o.Standalone == nil {
		o.Standalone = OpenStandalone
	}
	if o.Picker == nil {
		o.Picker = palette.NewBackend
	}
	return o
}

type globalFlags struct {
	socket  string
	verbose bool
	json    bool
}

func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type raiseFlags struct {
	class      string
	exec       string
	standalone bool
	launchCode int
	backend    string
	timeout    time.Duration
}

func (f *raiseFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.standalone, "standalone", false, "Decide locally without contacting the daemon")
	cmd.Flags().IntVar(&f.launchCode, "launch-code", 0, "Exit code to use when the application was launched rather than focused")
	cmd.Flags().StringVar(&f.backend, "backend", "auto", "Compositor backend for standalone mode (auto, hyprland, x11)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", config.DefaultCompositorTimeout, "Compositor call timeout for standalone mode")
}

// NewHypraiseCmd builds the hypraise command tree.
func NewHypraiseCmd(opts Options) *cobra.Command {
	opts = opts.withDefaults()
	g := &globalFlags{}
	rf := &raiseFlags{}

	root := &cobra.Command{
		Use:   "hypraise [app]",
		Short: "Focus an application's window or launch it",
		Long: `hypraise focuses an existing window of an application, or launches the
application when no window is open. Requests go through the halo daemon when it
is running and are decided locally otherwise.

Exit status is 0 when a window was focused, the --launch-code value when the
application was launched, 1 on failure and 2 on usage errors.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := engine.Request{Class: rf.class, Exec: rf.exec}
			if len(args) == 1 {
				req.App = args[0]
			}
			if req.App == "" && (req.Class == "" || req.Exec == "") {
				return usageError(errors.New("an application name, or both --class and --exec, is required"))
			}
			return runOrRaise(cmd.Context(), opts, g, rf, req)
		},
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)
	root.PersistentFlags().StringVar(&g.socket, "socket", "", "Daemon socket path (default: $XDG_RUNTIME_DIR/halo.sock)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log decisions to stderr")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "Print results as JSON")
	root.Flags().StringVar(&rf.class, "class", "", "Window class to match instead of the desktop entry's")
	root.Flags().StringVar(&rf.exec, "exec", "", "Command to launch instead of the desktop entry's")
	rf.register(root)

	root.AddCommand(
		showCmd(opts, g),
		hideCmd(opts, g),
		toggleCmd(opts, g),
		statusCmd(opts, g),
		slotsCmd(opts, g),
		pickCmd(opts, g),
		directionCmd(opts, g, "select", "Run the slot at a direction and hide the menu"),
		directionCmd(opts, g, "close", "Close the window of the slot at a direction"),
		reloadCmd(opts, g),
		rebuildCmd(opts, g),
	)
	return root
}

func runOrRaise(ctx context.Context, opts Options, g *globalFlags, rf *raiseFlags, req engine.Request) error {
	logger := g.logger(opts.Stderr)

	if !rf.standalone {
		out, err := opts.NewClient(g.socket).Run(ctx, req)
		if err == nil {
			return reportOutcome(opts.Stdout, g, *out, rf.launchCode)
		}
		if !errors.Is(err, ipc.ErrDaemonUnreachable) {
			return err
		}
		logger.Debug("daemon unreachable, deciding locally", "error", err)
	}

	withResolver := req.Class == "" || req.Exec == ""
	raiser, cleanup, err := opts.Standalone(rf.backend, rf.timeout, withResolver, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := raiser.RunOrRaise(ctx, req)
	if err != nil {
		return err
	}
	return reportOutcome(opts.Stdout, g, out, rf.launchCode)
}

func reportOutcome(w io.Writer, g *globalFlags, out engine.Outcome, launchCode int) error {
	if g.json {
		if err := printJSON(w, out); err != nil {
			return err
		}
	}
	if code := outcomeCode(out, launchCode); code != ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

func showCmd(opts Options, g *globalFlags) *cobra.Command {
	var x, y float64
	var monitor string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the menu at the pointer or at --x/--y",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var anchor *platform.Point
			xSet, ySet := cmd.Flags().Changed("x"), cmd.Flags().Changed("y")
			switch {
			case xSet && ySet:
				anchor = &platform.Point{X: x, Y: y, Monitor: monitor}
			case xSet || ySet:
				return usageError(errors.New("--x and --y must be given together"))
			}
			data, err := opts.NewClient(g.socket).Show(cmd.Context(), anchor)
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(opts.Stdout, data)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "Anchor x coordinate")
	cmd.Flags().Float64Var(&y, "y", 0, "Anchor y coordinate")
	cmd.Flags().StringVar(&monitor, "monitor", "", "Monitor the coordinates are relative to")
	return cmd
}

func hideCmd(opts Options, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "hide",
		Short: "Hide the menu",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.NewClient(g.socket).Hide(cmd.Context())
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(opts.Stdout, data)
			}
			return nil
		},
	}
}

func toggleCmd(opts Options, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Show the menu at the pointer, or hide it when visible",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.NewClient(g.socket).Toggle(cmd.Context())
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(opts.Stdout, data)
			}
			return nil
		},
	}
}

func statusCmd(opts Options, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.NewClient(g.socket).GetStatus(cmd.Context())
			if errors.Is(err, ipc.ErrDaemonUnreachable) {
				if g.json {
					_ = printJSON(opts.Stdout, ipc.StatusData{DaemonRunning: false})
				} else {
					fmt.Fprintf(opts.Stdout, "Daemon: %s\n", colorize(opts.Stdout, color.FgRed, "not running"))
				}
				return &ExitError{Code: ExitFailure}
			}
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(opts.Stdout, st)
			}

			w := opts.Stdout
			fmt.Fprintf(w, "Daemon:  %s\n", colorize(w, color.FgGreen, "running"))
			fmt.Fprintf(w, "Uptime:  %s\n", (time.Duration(st.UptimeSeconds) * time.Second).String())
			fmt.Fprintf(w, "Backend: %s\n", st.Backend)
			fmt.Fprintf(w, "Config:  %s (version %d, %d slots)\n", st.ConfigPath, st.Version, st.Slots)
			if st.Setup {
				fmt.Fprintln(w, "         no configuration file yet; select the Setup slot to create one")
			}
			menu := "hidden"
			if st.Visible {
				menu = "visible"
				if st.Anchor != nil {
					menu = fmt.Sprintf("visible at %.0f,%.0f", st.Anchor.X, st.Anchor.Y)
				}
			}
			fmt.Fprintf(w, "Menu:    %s\n", menu)
			if st.LastConfigError != "" {
				fmt.Fprintf(w, "Last config error: %s\n", colorize(w, color.FgYellow, st.LastConfigError))
			}
			return nil
		},
	}
}

func slotsCmd(opts Options, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "List configured slots",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.NewClient(g.socket).Slots(cmd.Context())
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(opts.Stdout, data)
			}

			tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DIRECTION\tAPP\tCLASS\tEXEC\tRUNNING")
			for _, s := range data.Slots {
				running := "no"
				if s.Running {
					running = "yes"
				}
				exec := s.Exec
				if s.Error != "" {
					exec = "(" + s.Error + ")"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Direction, s.App, s.Class, exec, running)
			}
			return tw.Flush()
		},
	}
}

func directionCmd(opts Options, g *globalFlags, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <direction>",
		Short: short,
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ParseDirection(args[0])
			if err != nil {
				return usageError(err)
			}
			client := opts.NewClient(g.socket)

			var data any
			if name == "select" {
				sel, err := client.Select(cmd.Context(), dir)
				if err != nil {
					return err
				}
				if sel.Setup && !g.json {
					fmt.Fprintf(opts.Stdout, "Configuration at %s\n", sel.ConfigPath)
				}
				data = sel
			} else {
				closed, err := client.Close(cmd.Context(), dir)
				if err != nil {
					return err
				}
				data = closed
			}
			if g.json {
				return printJSON(opts.Stdout, data)
			}
			return nil
		},
	}
}

func reloadCmd(opts Options, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the daemon configuration now",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.NewClient(g.socket).Reload(cmd.Context())
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(opts.Stdout, data)
			}
			fmt.Fprintf(opts.Stdout, "Configuration version %d (%d slots)\n", data.Version, data.Slots)
			return nil
		},
	}
}

func rebuildCmd(opts Options, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rescan installed desktop entries",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.NewClient(g.socket).Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(opts.Stdout, data)
			}
			fmt.Fprintf(opts.Stdout, "Indexed %d desktop entries\n", data.Entries)
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
