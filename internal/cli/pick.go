package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/troia/halo/internal/config"
	"github.com/troia/halo/internal/ipc"
	"github.com/troia/halo/internal/palette"
)

func pickCmd(opts Options, g *globalFlags) *cobra.Command {
	var picker string
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose a slot from a dmenu-style picker",
		Long: `pick lists the daemon's slots in rofi, fuzzel, wofi or dmenu and selects
the chosen one, as if its direction had been picked in the menu.

Closing the picker without a choice exits with status 1.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.NewClient(g.socket)
			data, err := client.Slots(cmd.Context())
			if err != nil {
				return err
			}
			if len(data.Slots) == 0 {
				return errors.New("no slots configured")
			}

			backend, err := opts.Picker(picker)
			if err != nil {
				return err
			}
			item, err := backend.Show(cmd.Context(), "halo", slotItems(data.Slots))
			if errors.Is(err, palette.ErrCancelled) {
				return &ExitError{Code: ExitFailure}
			}
			if err != nil {
				return err
			}

			dir, err := config.ParseDirection(item.Key)
			if err != nil {
				return err
			}
			sel, err := client.Select(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if g.json {
				return printJSON(opts.Stdout, sel)
			}
			if sel.Setup {
				fmt.Fprintf(opts.Stdout, "Configuration at %s\n", sel.ConfigPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&picker, "picker", "auto", "Picker to use (auto, tui, rofi, fuzzel, wofi, dmenu)")
	return cmd
}

func slotItems(slots []ipc.SlotInfo) []palette.Item {
	items := make([]palette.Item, 0, len(slots))
	for _, s := range slots {
		label := fmt.Sprintf("%-10s %s", s.Direction, s.App)
		switch {
		case s.Setup:
			label = fmt.Sprintf("%-10s Setup", s.Direction)
		case s.Error != "":
			label += " (" + s.Error + ")"
		case s.Running:
			label += " (running)"
		}
		items = append(items, palette.Item{
			Label:    label,
			Key:      s.Direction.String(),
			Icon:     s.Icon,
			Meta:     s.Class,
			IsActive: s.Running,
			IsUrgent: s.Error != "",
		})
	}
	return items
}
