package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fosterushka/Chronoflow-sub000/internal/session"
	"github.com/fosterushka/Chronoflow-sub000/internal/transfer"
)

var (
	transferFormat string
	exportOutput   string
	resetForce     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the board as JSON, YAML, CSV or Markdown",
	Long: `Export the board. JSON and YAML write a full snapshot that 'cf import'
reads back; CSV and Markdown write a time report per card.

Without --format the format is taken from the --output extension, or JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun(cmd.Context())
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the board with a JSON or YAML snapshot",
	Long: `Replace the board with a snapshot written by 'cf export'. The document is
validated first; an invalid document leaves the board untouched. Time
tracking is never resumed from an import.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importRun(cmd.Context(), args[0])
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every card, leaving five empty columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return resetRun(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().StringVarP(&transferFormat, "format", "f", "", "Output format: json, yaml, csv, markdown")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	importCmd.Flags().StringVarP(&transferFormat, "format", "f", "", "Input format: json, yaml (default: from extension)")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Confirm removing every card")
	rootCmd.AddCommand(exportCmd, importCmd, resetCmd)
}

// resolveFormat picks the explicit --format or infers it from path.
func resolveFormat(path string) (transfer.Format, error) {
	if transferFormat != "" {
		return transfer.ParseFormat(transferFormat)
	}
	if path != "" {
		return transfer.FormatFromPath(path), nil
	}
	return transfer.FormatJSON, nil
}

func exportRun(ctx context.Context) error {
	f, err := resolveFormat(exportOutput)
	if err != nil {
		return err
	}

	return withSession(ctx, func(sess *session.Session) error {
		if exportOutput == "" {
			return sess.Export(ui.Out, f)
		}
		if dryRun {
			ui.DryRunMsg("Would export %s to %s", f, exportOutput)
			return nil
		}

		file, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		if err := sess.Export(file, f); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("write export file: %w", err)
		}
		ui.Success("Exported board to %s", exportOutput)
		return nil
	})
}

func importRun(ctx context.Context, path string) error {
	f, err := resolveFormat(path)
	if err != nil {
		return err
	}
	if !f.Snapshottable() {
		return fmt.Errorf("cannot import %s: only json and yaml snapshots can be imported", f)
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer file.Close()
		r = file
	}

	if dryRun {
		snap, err := transfer.Import(r, f)
		if err != nil {
			return err
		}
		ui.DryRunMsg("Would replace the board with %d cards in %d columns", snap.CardCount(), len(snap.Columns))
		return nil
	}

	return withSession(ctx, func(sess *session.Session) error {
		snap, err := sess.Import(r, f)
		if err != nil {
			return err
		}
		ui.Success("Imported %d cards in %d columns", snap.CardCount(), len(snap.Columns))
		return nil
	})
}

func resetRun(ctx context.Context) error {
	if !resetForce {
		return errors.New("reset removes every card: pass --force to confirm")
	}
	if dryRun {
		ui.DryRunMsg("Would remove every card from the board")
		return nil
	}
	return withSession(ctx, func(sess *session.Session) error {
		if _, err := sess.Board.StopAll(); err != nil {
			return err
		}
		if err := sess.Board.Reset(); err != nil {
			return err
		}
		ui.Success("Board reset")
		return nil
	})
}
