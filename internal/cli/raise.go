package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/troia/halo/internal/engine"
)

// NewRaiseCmd builds the standalone raise command. It never contacts the
// daemon and never consults desktop entries.
func NewRaiseCmd(opts Options) *cobra.Command {
	opts = opts.withDefaults()
	g := &globalFlags{}
	rf := &raiseFlags{}

	cmd := &cobra.Command{
		Use:   "raise <class> --exec <command>",
		Short: "Focus a window by class or run a command",
		Long: `raise focuses the first window whose class matches exactly, or runs the
given command through the shell when there is none.

Exit status is 0 when a window was focused, the --launch-code value when the
command was launched, 1 on failure and 2 on usage errors.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rf.exec == "" {
				return usageError(errors.New("--exec is required"))
			}
			req := engine.Request{Class: args[0], Exec: rf.exec}

			raiser, cleanup, err := opts.Standalone(rf.backend, rf.timeout, false, g.logger(opts.Stderr))
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := raiser.RunOrRaise(cmd.Context(), req)
			if err != nil {
				return err
			}
			return reportOutcome(opts.Stdout, g, out, rf.launchCode)
		},
	}
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)
	cmd.Flags().StringVarP(&rf.exec, "exec", "e", "", "Command to run when no window matches")
	cmd.Flags().BoolVarP(&g.verbose, "verbose", "v", false, "Log decisions to stderr")
	cmd.Flags().BoolVar(&g.json, "json", false, "Print the decision as JSON")
	rf.register(cmd)
	// Always standalone.
	_ = cmd.Flags().MarkHidden("standalone")
	return cmd
}
