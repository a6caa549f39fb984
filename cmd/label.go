package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fosterushka/Chronoflow-sub000/internal/board"
	"github.com/fosterushka/Chronoflow-sub000/internal/output"
	"github.com/fosterushka/Chronoflow-sub000/internal/session"
)

var labelColor string

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Manage board labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelListRun(cmd.Context())
	},
}

var labelAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelAddRun(cmd.Context(), args[0])
	},
}

var labelListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List labels with card counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelListRun(cmd.Context())
	},
}

var labelDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a label and remove it from every card",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelDeleteRun(cmd.Context(), args[0])
	},
}

func init() {
	labelAddCmd.Flags().StringVar(&labelColor, "color", board.DefaultLabelColor, "Label color")
	labelCmd.AddCommand(labelAddCmd, labelListCmd, labelDeleteCmd)
	rootCmd.AddCommand(labelCmd)
}

func labelAddRun(ctx context.Context, name string) error {
	if dryRun {
		ui.DryRunMsg("Would create label %q", name)
		return nil
	}
	return withSession(ctx, func(sess *session.Session) error {
		label, err := sess.Board.AddLabel(name, labelColor)
		if err != nil {
			return err
		}
		ui.Success("Created label %s (%s)", output.Cyan(label.Name), label.Color)
		return nil
	})
}

func labelListRun(ctx context.Context) error {
	return withSession(ctx, func(sess *session.Session) error {
		labels := sess.Board.Labels()
		if len(labels) == 0 {
			ui.Info("No labels. Use 'cf label add <name>' to create one.")
			return nil
		}

		table := ui.Table([]string{"Name", "Color", "Cards", "ID"})
		for _, l := range labels {
			count := len(sess.Board.Cards(board.Filter{Label: l.ID}))
			table.Append([]string{
				output.Cyan(l.Name),
				l.Color,
				fmt.Sprintf("%d", count),
				shortID(l.ID),
			})
		}
		table.Render()
		return nil
	})
}

func labelDeleteRun(ctx context.Context, ref string) error {
	return withSession(ctx, func(sess *session.Session) error {
		label, err := sess.Board.Label(ref)
		if err != nil {
			return err
		}
		if dryRun {
			ui.DryRunMsg("Would delete label %q", label.Name)
			return nil
		}
		affected, err := sess.Board.DeleteLabel(label.ID)
		if err != nil {
			return err
		}
		ui.Success("Deleted label %s (removed from %d card(s))", output.Cyan(label.Name), len(affected))
		return nil
	})
}
