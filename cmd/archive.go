package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fosterushka/Chronoflow-sub000/internal/output"
	"github.com/fosterushka/Chronoflow-sub000/internal/session"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "List and restore deleted cards",
	Long:  "Deleted cards are kept in the archive for 24 hours (archive.retention) and can be restored until then.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return archiveListRun(cmd.Context())
	},
}

var archiveListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List restorable cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		return archiveListRun(cmd.Context())
	},
}

var archiveRestoreCmd = &cobra.Command{
	Use:   "restore <card-id>",
	Short: "Restore a deleted card to its original column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return archiveRestoreRun(cmd.Context(), args[0])
	},
}

func init() {
	archiveCmd.AddCommand(archiveListCmd, archiveRestoreCmd)
	rootCmd.AddCommand(archiveCmd)
}

func archiveListRun(ctx context.Context) error {
	return withSession(ctx, func(sess *session.Session) error {
		entries := sess.Board.Archive().List()
		if len(entries) == 0 {
			ui.Info("Archive is empty.")
			return nil
		}

		retention := sess.Board.Archive().Retention()
		table := ui.Table([]string{"ID", "Title", "From", "Deleted", "Expires"})
		for _, e := range entries {
			table.Append([]string{
				output.Cyan(shortID(e.Card.ID)),
				e.Card.Title,
				output.ColumnColor(string(e.OriginalColumnID)),
				e.DeletedAt.Local().Format("2006-01-02 15:04"),
				e.DeletedAt.Add(retention).Local().Format("2006-01-02 15:04"),
			})
		}
		table.Render()
		return nil
	})
}

func archiveRestoreRun(ctx context.Context, ref string) error {
	return withSession(ctx, func(sess *session.Session) error {
		id := ref
		// Accept the short ids printed by 'archive list'.
		for _, e := range sess.Board.Archive().List() {
			if e.Card.ID == ref || shortID(e.Card.ID) == ref {
				id = e.Card.ID
				break
			}
		}

		if dryRun {
			ui.DryRunMsg("Would restore card %s", shortID(id))
			return nil
		}

		card, col, err := sess.Board.RestoreCard(id)
		if err != nil {
			return err
		}
		ui.Success("Restored %s to %s: %s", output.Cyan(shortID(card.ID)), output.ColumnColor(string(col)), card.Title)
		return nil
	})
}
